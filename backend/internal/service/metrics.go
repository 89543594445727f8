package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	requestTransitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "valve_vault_code_request_transitions_total",
		Help: "Committed code request transitions by action",
	}, []string{"action"})

	claimConflicts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "valve_vault_claim_conflicts_total",
		Help: "Claims rejected because another actor holds the request",
	})

	duplicateCodeRejections = promauto.NewCounter(prometheus.CounterOpts{
		Name: "valve_vault_duplicate_code_total",
		Help: "Approvals refused because the code is already active in the catalog",
	})

	inventoryAdjustments = promauto.NewCounter(prometheus.CounterOpts{
		Name: "valve_vault_inventory_adjustments_total",
		Help: "Privileged inventory count adjustments",
	})

	expiredClaims = promauto.NewCounter(prometheus.CounterOpts{
		Name: "valve_vault_expired_claims_total",
		Help: "Claims released by the expiry sweeper",
	})
)
