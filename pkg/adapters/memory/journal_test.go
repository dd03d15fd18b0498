package memory_test

import (
	"context"
	"testing"

	"github.com/aretw0/tether/pkg/adapters/memory"
	"github.com/aretw0/tether/pkg/domain"
	"github.com/aretw0/tether/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryJournal_Contract(t *testing.T) {
	journal := memory.NewJournal()
	ports.RunJournalContract(t, journal)
}

func TestMemoryJournal_Limit(t *testing.T) {
	ctx := context.Background()
	journal := memory.NewJournal(memory.WithLimit(2))

	for _, name := range []string{"a", "b", "c"} {
		require.NoError(t, journal.Append(ctx, domain.ActionRecord{Action: name, StoreID: "s"}))
	}

	records, err := journal.List(ctx, "s")
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "b", records[0].Action)
	assert.Equal(t, "c", records[1].Action)
	assert.Equal(t, []string{"s"}, journal.Stores())
}

func TestMemoryJournal_CopyOnRead(t *testing.T) {
	ctx := context.Background()
	journal := memory.NewJournal()
	require.NoError(t, journal.Append(ctx, domain.ActionRecord{Action: "a", StoreID: "s"}))

	records, _ := journal.List(ctx, "s")
	records[0].Action = "mutated"

	again, _ := journal.List(ctx, "s")
	assert.Equal(t, "a", again[0].Action)
}
