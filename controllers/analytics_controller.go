package controllers

import (
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"bookstore-service/cache"
	"bookstore-service/database"
	"bookstore-service/middlewares"
	"bookstore-service/models"
)

const salesSummaryCacheKey = "analytics:sales_summary"
const salesSummaryTTL = 60 * time.Second

// SalesSummary returns the dashboard aggregates as one typed document.
// Defaults (zero counts, empty slices) are resolved here, at the data
// access boundary, so clients never probe for optional fields. The
// result is cached in Redis for a minute; the cache is best-effort and
// the endpoint works without it.
func SalesSummary(c *gin.Context) {
	defer func() {
		ok := c.Writer.Status() >= 200 && c.Writer.Status() < 300
		middlewares.RecordOperation("sales_summary", ok)
	}()

	var summary models.SalesSummary
	if cache.GetJSON(salesSummaryCacheKey, &summary) {
		c.JSON(http.StatusOK, summary)
		return
	}

	summary = models.SalesSummary{
		OrdersByStatus: map[string]int{
			models.OrderConfirmed: 0,
			models.OrderShipped:   0,
			models.OrderDelivered: 0,
			models.OrderCancelled: 0,
		},
		TopBooks:    []models.BookSales{},
		GeneratedAt: time.Now(),
	}

	err := database.DB.QueryRow(`
		SELECT COUNT(*), COALESCE(SUM(CASE WHEN status <> 'cancelled' THEN total_amount ELSE 0 END), 0)
		FROM orders
	`).Scan(&summary.TotalOrders, &summary.TotalRevenue)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	statusRows, err := database.DB.Query(`
		SELECT CASE WHEN status = 'pending' THEN 'confirmed' ELSE status END AS display_status, COUNT(*)
		FROM orders
		GROUP BY display_status
	`)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}
	for statusRows.Next() {
		var (
			status string
			count  int
		)
		if err := statusRows.Scan(&status, &count); err != nil {
			continue
		}
		summary.OrdersByStatus[status] = count
	}
	statusRows.Close()

	topRows, err := database.DB.Query(`
		SELECT b.book_id, b.title, SUM(oi.quantity), SUM(oi.subtotal)
		FROM order_items oi
		JOIN books b ON b.book_id = oi.book_id
		JOIN orders o ON o.order_id = oi.order_id
		WHERE o.status <> 'cancelled'
		GROUP BY b.book_id, b.title
		ORDER BY SUM(oi.quantity) DESC
		LIMIT 5
	`)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}
	for topRows.Next() {
		var bs models.BookSales
		if err := topRows.Scan(&bs.BookID, &bs.Title, &bs.Sold, &bs.Revenue); err != nil {
			log.Printf("Error scanning top book: %v", err)
			continue
		}
		summary.TopBooks = append(summary.TopBooks, bs)
	}
	topRows.Close()

	err = database.DB.QueryRow(`
		SELECT COUNT(DISTINCT customer_id)
		FROM orders
		WHERE order_date > NOW() - INTERVAL 30 DAY
	`).Scan(&summary.ActiveCustomers)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	cache.SetJSON(salesSummaryCacheKey, summary, salesSummaryTTL)
	c.JSON(http.StatusOK, summary)
}
