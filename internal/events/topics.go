package events

const (
	TopicOrderCompleted       = "checkout.completed"
	TopicStockAdjustRequested = "stock.adjust.requested"
	TopicStockAdjusted        = "stock.adjusted"
	TopicStockAdjustRejected  = "stock.adjust.rejected"
)

// Partition key = product_id utk stream stok, order_id utk stream order,
// supaya event per entitas maintain urutan.
func PartitionKey(id string) []byte { return []byte(id) }
