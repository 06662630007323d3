package middleware

import (
	"strconv"
	"time"

	"bakery/internal/metrics"

	"github.com/gofiber/fiber/v2"
)

// Metrics records request counts and latency per matched route.
func Metrics(m *metrics.Metrics) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		if err != nil {
			if fe, ok := err.(*fiber.Error); ok {
				status = fe.Code
			} else {
				status = fiber.StatusInternalServerError
			}
		}
		// Route().Path is the pattern, e.g. /api/v1/orders/:id, which keeps label cardinality bounded.
		m.ObserveRequest(c.Route().Path, strconv.Itoa(status), float64(time.Since(start).Microseconds())/1000)
		return err
	}
}
