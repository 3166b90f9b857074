// Package models holds the panel's resource records. The same types are
// decoded by the CLI and served by the API.
package models

import (
	"errors"
	"strings"
	"time"

	"cafepanel/internal/resource"
)

const (
	RoleAdmin   = "admin"
	RoleManager = "manager"
	RoleStaff   = "staff"
)

const (
	CategoryCoffee     = "Coffee"
	CategoryRestaurant = "Restaurant"
	CategoryBakery     = "Bakery"
)

const (
	ProductActive   = "Active"
	ProductInactive = "Inactive"
	ProductSoldOut  = "SoldOut"
)

const (
	TableAvailable = "available"
	TableOccupied  = "occupied"
	TableReserved  = "reserved"
)

const (
	OrderOpen      = "open"
	OrderPreparing = "preparing"
	OrderServed    = "served"
	OrderPaid      = "paid"
	OrderCancelled = "cancelled"
)

const (
	CafeActive    = "active"
	CafeSuspended = "suspended"
)

type Category struct {
	ID          resource.ID `json:"id,omitempty"`
	TenantID    int64       `json:"tenantId,omitempty"`
	Name        string      `json:"name"`
	Type        string      `json:"type"`
	Description string      `json:"description,omitempty"`
	// Active is nil when the client did not say; new categories are then
	// created active.
	Active *bool `json:"active,omitempty"`
}

// IsActive treats an unset flag as active.
func (c Category) IsActive() bool {
	return c.Active == nil || *c.Active
}

// Bool returns a pointer to v.
func Bool(v bool) *bool {
	return &v
}

func (c Category) RecordID() resource.ID { return c.ID }

func (c Category) WithID(id resource.ID) Category {
	c.ID = id
	return c
}

func (c Category) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return errors.New("name is required")
	}
	if strings.TrimSpace(c.Type) == "" {
		return errors.New("type is required")
	}
	return nil
}

type Product struct {
	ID          resource.ID `json:"id,omitempty"`
	TenantID    int64       `json:"tenantId,omitempty"`
	CategoryID  resource.ID `json:"categoryId"`
	Name        string      `json:"name"`
	Price       float64     `json:"price"`
	Description string      `json:"description,omitempty"`
	Status      string      `json:"status"`
}

func (p Product) RecordID() resource.ID { return p.ID }

func (p Product) WithID(id resource.ID) Product {
	p.ID = id
	return p
}

func (p Product) Validate() error {
	switch {
	case strings.TrimSpace(p.Name) == "":
		return errors.New("name is required")
	case p.CategoryID.IsZero():
		return errors.New("categoryId is required")
	case p.Price < 0:
		return errors.New("price cannot be negative")
	}
	switch p.Status {
	case "", ProductActive, ProductInactive, ProductSoldOut:
		return nil
	default:
		return errors.New("unknown product status " + p.Status)
	}
}

type Table struct {
	ID       resource.ID `json:"id,omitempty"`
	TenantID int64       `json:"tenantId,omitempty"`
	BranchID int64       `json:"branchId,omitempty"`
	Name     string      `json:"name"`
	Seats    int         `json:"seats"`
	Status   string      `json:"status"`
}

func (t Table) RecordID() resource.ID { return t.ID }

func (t Table) WithID(id resource.ID) Table {
	t.ID = id
	return t
}

func (t Table) Validate() error {
	if strings.TrimSpace(t.Name) == "" {
		return errors.New("name is required")
	}
	if t.Seats < 0 {
		return errors.New("seats cannot be negative")
	}
	switch t.Status {
	case "", TableAvailable, TableOccupied, TableReserved:
		return nil
	default:
		return errors.New("unknown table status " + t.Status)
	}
}

type OrderItem struct {
	ProductID resource.ID `json:"productId"`
	Name      string      `json:"name"`
	Quantity  int         `json:"quantity"`
	UnitPrice float64     `json:"unitPrice"`
}

type Order struct {
	ID        resource.ID `json:"id,omitempty"`
	TenantID  int64       `json:"tenantId,omitempty"`
	TableID   resource.ID `json:"tableId,omitempty"`
	Status    string      `json:"status"`
	Items     []OrderItem `json:"items"`
	Total     float64     `json:"total"`
	Note      string      `json:"note,omitempty"`
	CreatedAt *time.Time  `json:"createdAt,omitempty"`
}

func (o Order) RecordID() resource.ID { return o.ID }

func (o Order) WithID(id resource.ID) Order {
	o.ID = id
	return o
}

func (o Order) Validate() error {
	for _, item := range o.Items {
		if item.ProductID.IsZero() {
			return errors.New("every item needs a productId")
		}
		if item.Quantity <= 0 {
			return errors.New("item quantity must be positive")
		}
		if item.UnitPrice < 0 {
			return errors.New("item unitPrice cannot be negative")
		}
	}
	switch o.Status {
	case "", OrderOpen, OrderPreparing, OrderServed, OrderPaid, OrderCancelled:
		return nil
	default:
		return errors.New("unknown order status " + o.Status)
	}
}

// ComputeTotal sums quantity times unit price over the order's items.
func (o Order) ComputeTotal() float64 {
	var cents int64
	for _, item := range o.Items {
		cents += int64(item.Quantity) * int64(item.UnitPrice*100+0.5)
	}
	return float64(cents) / 100
}

type Cafe struct {
	ID      resource.ID `json:"id,omitempty"`
	Name    string      `json:"name"`
	Address string      `json:"address,omitempty"`
	Phone   string      `json:"phone,omitempty"`
	Status  string      `json:"status"`
}

func (c Cafe) RecordID() resource.ID { return c.ID }

func (c Cafe) WithID(id resource.ID) Cafe {
	c.ID = id
	return c
}

func (c Cafe) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return errors.New("name is required")
	}
	switch c.Status {
	case "", CafeActive, CafeSuspended:
		return nil
	default:
		return errors.New("unknown cafe status " + c.Status)
	}
}

// User is a panel operator. PasswordHash never leaves the server.
type User struct {
	ID           int64     `json:"id"`
	TenantID     int64     `json:"tenantId,omitempty"`
	BranchID     int64     `json:"branchId,omitempty"`
	Email        string    `json:"email"`
	Role         string    `json:"role"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Dashboard is the KPI summary for one tenant since a point in time.
type Dashboard struct {
	Since          time.Time      `json:"since"`
	OrdersCount    int            `json:"ordersCount"`
	Revenue        float64        `json:"revenue"`
	OpenOrders     int            `json:"openOrders"`
	OccupiedTables int            `json:"occupiedTables"`
	TableCount     int            `json:"tableCount"`
	ProductCount   int            `json:"productCount"`
	OrdersByStatus map[string]int `json:"ordersByStatus"`
}
