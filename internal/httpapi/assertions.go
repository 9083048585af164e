package httpapi

import (
	"github.com/mesabook/cuadre/internal/service/reconcile"
	"github.com/mesabook/cuadre/internal/storage/memory"
	"github.com/mesabook/cuadre/internal/storage/postgres"
)

// Compile-time interface assertions for the stores against the service interfaces.
var (
	_ reconcile.Repo   = (*memory.Store)(nil)
	_ reconcile.Writer = (*memory.Store)(nil)
	_ reconcile.Repo   = (*postgres.Store)(nil)
	_ reconcile.Writer = (*postgres.Store)(nil)
)
