package address

import "errors"

var ErrNotFound = errors.New("address not found")

// Address: checkout cuma butuh owner id utk ownership check; field lain
// di-snapshot apa adanya ke order.
type Address struct {
	ID         string
	UserID     string
	Recipient  string
	Phone      string
	Street     string
	City       string
	Province   string
	PostalCode string
}
