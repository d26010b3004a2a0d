package saga

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ordersPlaced = promauto.NewCounter(prometheus.CounterOpts{
		Name: "checkout_orders_placed_total",
		Help: "Orders committed with all reservations held.",
	})

	checkoutFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_failures_total",
		Help: "Failed placement attempts by failure kind.",
	}, []string{"reason"})

	reservationRetries = promauto.NewCounter(prometheus.CounterOpts{
		Name: "checkout_reservation_retries_total",
		Help: "Reservation attempts retried after conflict or timeout.",
	})

	releaseFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "checkout_release_failures_total",
		Help: "Compensating releases that failed their first attempt.",
	})
)
