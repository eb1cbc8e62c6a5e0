package discord

import (
	"strings"

	"github.com/rivo/uniseg"
)

// maxFieldLen is Discord's limit for activity text fields.
const maxFieldLen = 128

// Activity is the rich presence shown for the application.
type Activity struct {
	State      string      `json:"state,omitempty"`
	Details    string      `json:"details,omitempty"`
	Timestamps *Timestamps `json:"timestamps,omitempty"`
	Assets     *Assets     `json:"assets,omitempty"`
}

// Timestamps are unix seconds.
type Timestamps struct {
	Start int64 `json:"start,omitempty"`
	End   int64 `json:"end,omitempty"`
}

// Assets reference images uploaded for the application.
type Assets struct {
	LargeImage string `json:"large_image,omitempty"`
	LargeText  string `json:"large_text,omitempty"`
	SmallImage string `json:"small_image,omitempty"`
	SmallText  string `json:"small_text,omitempty"`
}

// sanitized returns a copy with every text field within Discord's limits.
func (a Activity) sanitized() Activity {
	a.State = truncate(a.State, maxFieldLen)
	a.Details = truncate(a.Details, maxFieldLen)
	if a.Assets != nil {
		assets := *a.Assets
		assets.LargeText = truncate(assets.LargeText, maxFieldLen)
		assets.SmallText = truncate(assets.SmallText, maxFieldLen)
		a.Assets = &assets
	}
	return a
}

// truncate shortens s to at most limit grapheme clusters, ending with an
// ellipsis when cut.
func truncate(s string, limit int) string {
	if uniseg.GraphemeClusterCount(s) <= limit {
		return s
	}
	var b strings.Builder
	gr := uniseg.NewGraphemes(s)
	for n := 0; n < limit-1 && gr.Next(); n++ {
		b.WriteString(gr.Str())
	}
	b.WriteString("…")
	return b.String()
}
