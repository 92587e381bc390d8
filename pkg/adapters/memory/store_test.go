package memory_test

import (
	"testing"

	"github.com/veldt-dev/veldt/pkg/adapters/memory"
	"github.com/veldt-dev/veldt/pkg/store"
	"github.com/veldt-dev/veldt/pkg/store/storetest"
)

func TestMemoryStore_Contract(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Store {
		return memory.New()
	})
}
