package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/mcoot/minimarket/internal/api/response"
)

// Output handles formatting output based on the configured format
type Output struct {
	format string
	w      io.Writer
}

// NewOutput creates a new Output formatter writing to w
func NewOutput(format string, w io.Writer) *Output {
	if w == nil {
		w = os.Stdout
	}
	return &Output{format: format, w: w}
}

// Print outputs data in the configured format
func (o *Output) Print(data any) {
	if o.format == OutputJSON {
		o.printJSON(data)
	} else {
		o.printText(data)
	}
}

// PrintMessage outputs a simple message
func (o *Output) PrintMessage(msg string) {
	if o.format == OutputJSON {
		data, _ := json.Marshal(map[string]string{"message": msg})
		fmt.Fprintln(o.w, string(data))
	} else {
		fmt.Fprintln(o.w, msg)
	}
}

func (o *Output) printJSON(data any) {
	enc := json.NewEncoder(o.w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(data)
}

func (o *Output) printText(data any) {
	switch v := data.(type) {
	case response.Profile:
		o.printProfile(v)
	case response.ProfileList:
		o.printProfileList(v)
	case response.StorageInfo:
		o.printStorageInfo(v)
	default:
		// Fallback to JSON for unknown types
		o.printJSON(data)
	}
}

func (o *Output) printProfile(p response.Profile) {
	fmt.Fprintf(o.w, "Profile: %s (%s)\n", p.Name, p.ID)
	fmt.Fprintf(o.w, "Avatar: %s\n", p.Avatar)
	fmt.Fprintf(o.w, "Language: %s\n", p.Language)
	fmt.Fprintf(o.w, "Created: %s\n", p.CreatedDate)
	fmt.Fprintf(o.w, "Last played: %s\n", p.LastPlayed)

	if len(p.Settings) > 0 {
		fmt.Fprintln(o.w, "Settings:")
		for _, key := range sortedKeys(p.Settings) {
			fmt.Fprintf(o.w, "  %s: %v\n", key, p.Settings[key])
		}
	}
	if len(p.Progress) > 0 {
		fmt.Fprintln(o.w, "Progress:")
		for _, key := range sortedKeys(p.Progress) {
			fmt.Fprintf(o.w, "  %s\n", key)
		}
	}
}

func (o *Output) printProfileList(l response.ProfileList) {
	fmt.Fprintf(o.w, "Profiles (%d):\n", l.Count)
	for _, p := range l.Profiles {
		fmt.Fprintf(o.w, "  - %s (%s) %s, last played %s\n", p.Name, p.ID, p.Language, p.LastPlayed)
	}
}

func (o *Output) printStorageInfo(s response.StorageInfo) {
	fmt.Fprintf(o.w, "Backend: %s\n", s.Backend)
	fmt.Fprintf(o.w, "Profiles: %d\n", s.Profiles)
	fmt.Fprintf(o.w, "Storage: %d bytes\n", s.StorageBytes)
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
