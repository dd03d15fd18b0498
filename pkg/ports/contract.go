package ports

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/aretw0/tether/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunJournalContract runs a suite of tests to verify that a Journal implementation
// adheres to the defined interface contract.
func RunJournalContract(t *testing.T, journal Journal) {
	ctx := context.Background()
	storeID := "contract-test-store-" + time.Now().Format("20060102150405")

	t.Run("Append and List", func(t *testing.T) {
		for i := 1; i <= 3; i++ {
			err := journal.Append(ctx, domain.ActionRecord{
				Seq:          uint64(i),
				Action:       fmt.Sprintf("action-%d", i),
				Args:         "foo",
				StoreID:      storeID,
				Outcome:      domain.OutcomeCommitted,
				Commits:      1,
				DispatchedAt: time.Now(),
			})
			require.NoError(t, err, "Append should not return error")
		}

		records, err := journal.List(ctx, storeID)
		require.NoError(t, err, "List should not return error")
		require.Len(t, records, 3)
		assert.Equal(t, "action-1", records[0].Action, "records must be oldest first")
		assert.Equal(t, "action-3", records[2].Action)
		assert.Equal(t, domain.OutcomeCommitted, records[0].Outcome)
		// Args may come back re-typed by serialization; strings survive unchanged.
		assert.Equal(t, "foo", records[0].Args)
	})

	t.Run("Stores Are Isolated", func(t *testing.T) {
		other := storeID + "-other"
		require.NoError(t, journal.Append(ctx, domain.ActionRecord{Action: "elsewhere", StoreID: other}))

		records, err := journal.List(ctx, other)
		require.NoError(t, err)
		require.Len(t, records, 1)
		assert.Equal(t, "elsewhere", records[0].Action)

		records, err = journal.List(ctx, storeID)
		require.NoError(t, err)
		for _, r := range records {
			assert.NotEqual(t, "elsewhere", r.Action)
		}
	})

	t.Run("List Unknown Store", func(t *testing.T) {
		records, err := journal.List(ctx, "unknown-"+storeID)
		require.NoError(t, err)
		assert.Empty(t, records)
	})
}
