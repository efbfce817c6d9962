package keyring

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMasterKeyFromSecretDeterministic(t *testing.T) {
	secret := []byte("passkey-backed-secret")
	salt := []byte("namespace-salt")

	k1, err := MasterKeyFromSecret(secret, salt)
	require.NoError(t, err)
	k2, err := MasterKeyFromSecret(secret, salt)
	require.NoError(t, err)
	assert.Equal(t, k1.Reveal(), k2.Reveal())
}

func TestKeyHandleZero(t *testing.T) {
	var k KeyHandle
	assert.True(t, k.Zero())

	nonZero, err := MasterKeyFromSecret([]byte("s"), []byte("salt"))
	require.NoError(t, err)
	assert.False(t, nonZero.Zero())
}

func TestSubKeyDiffersByInfo(t *testing.T) {
	master, err := MasterKeyFromSecret([]byte("secret"), []byte("salt"))
	require.NoError(t, err)

	content, err := master.SubKey([]byte("rotsalt"), "nous-content")
	require.NoError(t, err)
	metadata, err := master.SubKey([]byte("rotsalt"), "nous-metadata")
	require.NoError(t, err)
	assert.NotEqual(t, content.Reveal(), metadata.Reveal())
}

func TestRotationOneWayPhaseOrder(t *testing.T) {
	s := State{Phase: PhaseGenerating}
	require.NoError(t, s.Advance())
	assert.Equal(t, PhaseReencrypting, s.Phase)
	require.NoError(t, s.Advance())
	assert.Equal(t, PhaseVerifying, s.Phase)
	require.NoError(t, s.Advance())
	assert.Equal(t, PhaseCompleting, s.Phase)
	require.NoError(t, s.Advance())
	assert.Equal(t, PhaseDone, s.Phase)

	err := s.Advance()
	assert.Error(t, err)
}

func TestRotatorRunFullCycle(t *testing.T) {
	r := NewRotator(2)
	r.BatchInterval = 0

	batches := 0
	var persisted []Phase
	r.Persist = func(s State) { persisted = append(persisted, s.Phase) }

	err := r.Run(context.Background(),
		func(ctx context.Context, cursor string) (string, bool, error) {
			batches++
			if batches >= 3 {
				return "cursor-3", true, nil
			}
			return "cursor-" + string(rune('0'+batches)), false, nil
		},
		func(ctx context.Context) error { return nil },
		func(ctx context.Context) error { return nil },
	)

	require.NoError(t, err)
	assert.Equal(t, 3, batches)
	assert.Equal(t, PhaseDone, r.State.Phase)
	assert.Contains(t, persisted, PhaseVerifying)
}

func TestRotatorResumesFromCursor(t *testing.T) {
	r := Resume(State{Phase: PhaseReencrypting, Cursor: "cursor-5", KeyVersion: 2})
	r.BatchInterval = 0

	var seenCursors []string
	err := r.Run(context.Background(),
		func(ctx context.Context, cursor string) (string, bool, error) {
			seenCursors = append(seenCursors, cursor)
			return "cursor-6", true, nil
		},
		func(ctx context.Context) error { return nil },
		func(ctx context.Context) error { return nil },
	)

	require.NoError(t, err)
	require.Len(t, seenCursors, 1)
	assert.Equal(t, "cursor-5", seenCursors[0])
}

func TestRotatorAbortsOnVerifyFailure(t *testing.T) {
	r := NewRotator(3)
	r.BatchInterval = 0

	err := r.Run(context.Background(),
		func(ctx context.Context, cursor string) (string, bool, error) { return "", true, nil },
		func(ctx context.Context) error { return assertError{} },
		func(ctx context.Context) error { return nil },
	)

	require.Error(t, err)
	assert.Equal(t, PhaseVerifying, r.State.Phase)
}

type assertError struct{}

func (assertError) Error() string { return "verification failed" }

func TestMnemonicRoundTrip(t *testing.T) {
	words, entropy, err := GenerateMnemonic(128)
	require.NoError(t, err)
	assert.Len(t, words, 12) // 128 bits + 4 checksum bits = 132 bits / 11 = 12 words

	recovered, err := MnemonicToEntropy(words)
	require.NoError(t, err)
	assert.Equal(t, entropy, recovered)
}

func TestMnemonicRejectsTamperedChecksum(t *testing.T) {
	words, _, err := GenerateMnemonic(128)
	require.NoError(t, err)

	// Swap the last word for a different valid wordlist entry, which
	// will almost certainly invalidate the checksum.
	alt := wordlist[0]
	if words[len(words)-1] == alt {
		alt = wordlist[1]
	}
	words[len(words)-1] = alt

	_, err = MnemonicToEntropy(words)
	assert.Error(t, err)
}

func TestMnemonicRejectsUnknownWord(t *testing.T) {
	_, err := MnemonicToEntropy([]string{"not-a-real-word"})
	assert.Error(t, err)
}

func TestWordlistSizeAndUniqueness(t *testing.T) {
	require.Len(t, wordlist, wordlistSize)
	seen := make(map[string]struct{}, len(wordlist))
	for _, w := range wordlist {
		_, dup := seen[w]
		assert.False(t, dup, "duplicate word: %s", w)
		seen[w] = struct{}{}
	}
}
