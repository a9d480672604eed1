// Package importer loads YAML manifests of user stories and applies them
// through the story service, one transaction per story.
package importer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/mesh-intelligence/stories/internal/service"
	"github.com/mesh-intelligence/stories/pkg/types"
)

// maxConcurrentLoads bounds how many manifest files LoadAll reads at once.
const maxConcurrentLoads = 4

// ErrEmptyManifest is returned by Load for a manifest without stories.
var ErrEmptyManifest = errors.New("manifest has no stories")

// Manifest is a YAML file of stories.
type Manifest struct {
	Path    string       `yaml:"-"`
	Stories []StoryEntry `yaml:"stories"`
}

// StoryEntry is one story in a manifest. An empty ID is generated on apply.
type StoryEntry struct {
	ID                 string           `yaml:"id,omitempty"`
	Title              string           `yaml:"title"`
	Description        string           `yaml:"description"`
	Persona            string           `yaml:"persona"`
	AcceptanceCriteria []CriterionEntry `yaml:"acceptance_criteria,omitempty"`
}

// CriterionEntry is one criterion nested under a story.
type CriterionEntry struct {
	ID          string `yaml:"id,omitempty"`
	Description string `yaml:"description"`
}

// Options controls Apply.
type Options struct {
	// ContinueOnError keeps applying the remaining stories after a failure.
	ContinueOnError bool
}

// Result reports the outcome for one manifest story.
type Result struct {
	Index    int
	StoryID  string
	Criteria int
	Err      error
}

// Load reads and parses the manifest at path. Unknown keys are rejected.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading manifest: %w", err)
	}
	m, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	m.Path = path
	return m, nil
}

// Parse decodes a manifest from YAML bytes.
func Parse(data []byte) (*Manifest, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var m Manifest
	if err := dec.Decode(&m); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parsing manifest: %w", err)
	}
	if len(m.Stories) == 0 {
		return nil, ErrEmptyManifest
	}
	return &m, nil
}

// LoadAll loads every path concurrently and returns the manifests in the
// order given. The first failure cancels the rest.
func LoadAll(ctx context.Context, paths []string) ([]*Manifest, error) {
	manifests := make([]*Manifest, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentLoads)
	for i, path := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			m, err := Load(path)
			if err != nil {
				return err
			}
			manifests[i] = m
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return manifests, nil
}

// Apply creates each manifest story with its criteria. Missing ids are
// generated from the configured prefixes. Apply stops at the first failure
// unless opts.ContinueOnError is set; the returned error is the first
// failure either way.
func Apply(ctx context.Context, svc *service.Services, m *Manifest, opts Options) ([]Result, error) {
	results := make([]Result, 0, len(m.Stories))
	var firstErr error
	for i, entry := range m.Stories {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		res := applyStory(ctx, svc, i, entry)
		results = append(results, res)
		if res.Err == nil {
			continue
		}
		if firstErr == nil {
			firstErr = fmt.Errorf("story %d (%s): %w", i, res.StoryID, res.Err)
		}
		if !opts.ContinueOnError {
			break
		}
	}
	return results, firstErr
}

func applyStory(ctx context.Context, svc *service.Services, index int, entry StoryEntry) Result {
	id := entry.ID
	if id == "" {
		id = svc.Stories.NewID()
	}
	criteria := make([]types.CreateAcceptanceCriteriaRequest, 0, len(entry.AcceptanceCriteria))
	for _, c := range entry.AcceptanceCriteria {
		cid := c.ID
		if cid == "" {
			cid = svc.Criteria.NewID()
		}
		criteria = append(criteria, types.CreateAcceptanceCriteriaRequest{
			ID:          cid,
			UserStoryID: id,
			Description: c.Description,
		})
	}

	created, err := svc.Stories.CreateWithCriteria(ctx, types.CreateUserStoryRequest{
		ID:          id,
		Title:       entry.Title,
		Description: entry.Description,
		Persona:     entry.Persona,
	}, criteria)
	if err != nil {
		return Result{Index: index, StoryID: id, Err: err}
	}
	return Result{Index: index, StoryID: id, Criteria: len(created.AcceptanceCriteria)}
}
