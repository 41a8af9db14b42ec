package nostr

import (
	"encoding/json"
	"testing"

	"github.com/lumora-app/listsync/internal/cryptox"
	"github.com/stretchr/testify/require"
)

func TestEvent_FinalizeStampsIdentityAndSignature(t *testing.T) {
	signer := cryptox.NewDevSigner([]byte("secret"))

	ev := Event{
		CreatedAt: 1700000000,
		Kind:      30003,
		Tags:      []Tag{{"d", "travel"}, {"e", "abc"}},
		Content:   "",
	}
	require.NoError(t, ev.Finalize(signer))

	require.Equal(t, signer.PublicKey(), ev.PubKey)
	require.Len(t, ev.ID, 64)
	require.NotEmpty(t, ev.Sig)

	// Same input, same identity.
	ev2 := Event{CreatedAt: 1700000000, Kind: 30003, Tags: []Tag{{"d", "travel"}, {"e", "abc"}}}
	require.NoError(t, ev2.Finalize(signer))
	require.Equal(t, ev.ID, ev2.ID)
}

func TestEvent_TagHelpers(t *testing.T) {
	ev := Event{Tags: []Tag{{"d", "travel"}, {"title", "Travel spots"}, {"x"}}}

	require.Equal(t, "travel", ev.DTag())
	require.Equal(t, "Travel spots", ev.TagValue("title"))
	require.Equal(t, "", ev.TagValue("missing"))
	require.Equal(t, "", Tag{}.Type())
	require.Equal(t, "", Tag{"x"}.Value())
}

func TestFilter_MarshalOmitsZeroFields(t *testing.T) {
	b, err := json.Marshal(Filter{Kinds: []int{30003}, Authors: []string{"a"}})
	require.NoError(t, err)

	var m map[string]any
	require.NoError(t, json.Unmarshal(b, &m))
	require.Contains(t, m, "kinds")
	require.Contains(t, m, "authors")
	require.NotContains(t, m, "until")
	require.NotContains(t, m, "limit")
	require.NotContains(t, m, "#d")
}

func TestFilter_RoundTrip(t *testing.T) {
	f := Filter{Kinds: []int{30000}, Authors: []string{"a"}, DTags: []string{"travel"}, Until: 99, Limit: 10}

	b, err := json.Marshal(f)
	require.NoError(t, err)

	var got Filter
	require.NoError(t, json.Unmarshal(b, &got))
	require.Equal(t, f, got)
}
