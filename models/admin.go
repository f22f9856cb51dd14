package models

import "time"

// Admin permissions. Super admins implicitly hold all of them.
const (
	PermManageBooks  = "manage_books"
	PermManageOrders = "manage_orders"
	PermViewReports  = "view_reports"
	PermManageAdmins = "manage_admins"
)

type Admin struct {
	ID          int       `json:"admin_id"`
	Username    string    `json:"username"`
	IsSuper     bool      `json:"is_super"`
	Permissions []string  `json:"permissions"`
	CreatedAt   time.Time `json:"created_at"`
}

// SalesSummary is the typed analytics response. Every field has a zero
// default resolved at the data-access boundary, so consumers never probe
// for optional keys.
type SalesSummary struct {
	TotalOrders     int            `json:"total_orders"`
	TotalRevenue    float64        `json:"total_revenue"`
	OrdersByStatus  map[string]int `json:"orders_by_status"`
	TopBooks        []BookSales    `json:"top_books"`
	ActiveCustomers int            `json:"active_customers"`
	GeneratedAt     time.Time      `json:"generated_at"`
}

type BookSales struct {
	BookID  int     `json:"book_id"`
	Title   string  `json:"title"`
	Sold    int     `json:"sold"`
	Revenue float64 `json:"revenue"`
}
