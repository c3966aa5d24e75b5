package domain_test

import (
	"testing"

	"github.com/btcsuite/btcd/wire"
	"github.com/stretchr/testify/require"
	"github.com/vulpemventures/chaincase/internal/core/domain"
)

func TestMempoolUpdate(t *testing.T) {
	tx1, tx2, tx3 := wire.NewMsgTx(1), wire.NewMsgTx(2), wire.NewMsgTx(3)
	update := domain.MempoolUpdate{
		Root: domain.MempoolFilter{Key: "abc123"},
		Buckets: map[string][]*wire.MsgTx{
			"c": {tx3},
			"a": {tx1, tx2},
			"b": {},
		},
	}

	require.Equal(t, []string{"a", "b", "c"}, update.BucketKeys())
	require.Equal(t, []*wire.MsgTx{tx1, tx2, tx3}, update.Transactions())

	empty := domain.MempoolUpdate{}
	require.Empty(t, empty.BucketKeys())
	require.Empty(t, empty.Transactions())
}
