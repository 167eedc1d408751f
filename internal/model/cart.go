package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Owner identifies whose cart (or order) a row belongs to.
//
// Exactly one of UserID and SessionID is set: logged-in shoppers own rows by
// their user ID, guests by their anonymous session ID.
type Owner struct {
	UserID    string
	SessionID string
}

// UserOwner returns the owner for an authenticated user.
func UserOwner(userID string) Owner { return Owner{UserID: userID} }

// SessionOwner returns the owner for an anonymous browser session.
func SessionOwner(sessionID string) Owner { return Owner{SessionID: sessionID} }

// Valid reports whether exactly one identity is set.
func (o Owner) Valid() bool {
	return (o.UserID == "") != (o.SessionID == "")
}

// Key is a single string that is unique per owner. The database uses it for
// the (owner, product) uniqueness constraint on cart lines.
func (o Owner) Key() string {
	if o.UserID != "" {
		return "user:" + o.UserID
	}
	return "session:" + o.SessionID
}

func (o Owner) String() string { return o.Key() }

// CartProduct is the live product data joined onto a cart line. Price here
// is whatever the product costs right now; it is frozen only at checkout.
type CartProduct struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	ImageURL string          `json:"imageUrl"`
	Active   bool            `json:"active"`
}

// CartItem is one line of a cart. Quantity is always > 0: setting it to zero
// deletes the line instead.
type CartItem struct {
	ID        string      `json:"id"`
	ProductID string      `json:"productId"`
	Quantity  int         `json:"quantity"`
	Owner     Owner       `json:"-"`
	Product   CartProduct `json:"product"`
	CreatedAt time.Time   `json:"createdAt"`
	UpdatedAt time.Time   `json:"updatedAt"`
}

// LineTotal is quantity x live price.
func (c CartItem) LineTotal() decimal.Decimal {
	return c.Product.Price.Mul(decimal.NewFromInt(int64(c.Quantity)))
}
