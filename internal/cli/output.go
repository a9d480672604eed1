package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/stories/pkg/types"
)

var (
	idColor      = color.New(color.FgCyan, color.Bold).SprintFunc()
	labelColor   = color.New(color.FgHiBlack).SprintFunc()
	personaColor = color.New(color.FgYellow).SprintFunc()
	okColor      = color.New(color.FgGreen).SprintFunc()
	errColor     = color.New(color.FgRed).SprintFunc()
)

// printer writes command results as colored text or, with --json, as
// indented JSON.
type printer struct {
	w    io.Writer
	json bool
}

func (a *app) printer(cmd *cobra.Command) *printer {
	return &printer{w: cmd.OutOrStdout(), json: a.jsonMode}
}

// JSON writes v as indented JSON.
func (p *printer) JSON(v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return sysError(fmt.Errorf("marshal JSON: %w", err))
	}
	fmt.Fprintln(p.w, string(out))
	return nil
}

// Successf writes a confirmation line.
func (p *printer) Successf(format string, args ...any) {
	fmt.Fprintf(p.w, "%s %s\n", okColor("✓"), fmt.Sprintf(format, args...))
}

// Field writes an indented "label: value" line.
func (p *printer) Field(label string, value any) {
	fmt.Fprintf(p.w, "  %s %v\n", labelColor(label+":"), value)
}

// Story writes a story header and its fields.
func (p *printer) Story(s *types.UserStory) {
	fmt.Fprintf(p.w, "%s  %s\n", idColor(s.ID), s.Title)
	p.Field("persona", personaColor(s.Persona))
	p.Field("description", s.Description)
	p.Field("created", s.CreatedAt.Format(time.RFC3339))
	p.Field("updated", s.UpdatedAt.Format(time.RFC3339))
}

// StoryWithCriteria writes a story followed by its criteria.
func (p *printer) StoryWithCriteria(s *types.UserStoryWithCriteria) {
	p.Story(&s.UserStory)
	p.Field("criteria", len(s.AcceptanceCriteria))
	for _, c := range s.AcceptanceCriteria {
		fmt.Fprintf(p.w, "    %s  %s\n", idColor(c.ID), c.Description)
	}
}

// StoryLines writes one line per story.
func (p *printer) StoryLines(list []*types.UserStory) {
	if len(list) == 0 {
		fmt.Fprintln(p.w, labelColor("no user stories"))
		return
	}
	for _, s := range list {
		fmt.Fprintf(p.w, "%s  %s  %s\n", idColor(s.ID), s.Title, personaColor("("+s.Persona+")"))
	}
}

// Criterion writes a criterion and its fields.
func (p *printer) Criterion(c *types.AcceptanceCriteria) {
	fmt.Fprintf(p.w, "%s  %s\n", idColor(c.ID), c.Description)
	p.Field("story", c.UserStoryID)
	p.Field("created", c.CreatedAt.Format(time.RFC3339))
	p.Field("updated", c.UpdatedAt.Format(time.RFC3339))
}

// CriteriaLines writes one line per criterion.
func (p *printer) CriteriaLines(list []*types.AcceptanceCriteria) {
	if len(list) == 0 {
		fmt.Fprintln(p.w, labelColor("no acceptance criteria"))
		return
	}
	for _, c := range list {
		fmt.Fprintf(p.w, "%s  %s  %s\n", idColor(c.ID), labelColor(c.UserStoryID), c.Description)
	}
}

// Counts writes a map of counts sorted by key.
func (p *printer) Counts(title string, counts map[string]int64) {
	fmt.Fprintln(p.w, title)
	for _, k := range sortedKeys(counts) {
		fmt.Fprintf(p.w, "    %s %d\n", labelColor(k+":"), counts[k])
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
