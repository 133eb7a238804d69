// Package jobs runs batches of comparisons described by JSON job files on a
// bounded worker pool, optionally recording every run in the history store.
package jobs

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/joseph-ayodele/pdf-compare/constants"
	"github.com/joseph-ayodele/pdf-compare/internal/common"
	"github.com/joseph-ayodele/pdf-compare/internal/compare"
	"github.com/joseph-ayodele/pdf-compare/internal/diff"
	"github.com/joseph-ayodele/pdf-compare/internal/imaging"
	"github.com/joseph-ayodele/pdf-compare/internal/pages"
)

// File is the decoded form of a job file.
type File struct {
	Name        string         `json:"name"`
	Options     *Options       `json:"options,omitempty"`
	Pairs       []PairSpec     `json:"pairs,omitempty"`
	Directories *DirectorySpec `json:"directories,omitempty"`
}

// Options override the base comparison settings. Nil fields keep the base
// value.
type Options struct {
	Mode             *string  `json:"mode,omitempty"`
	Strategy         *string  `json:"strategy,omitempty"`
	Highlight        *bool    `json:"highlight,omitempty"`
	HighlightColor   *string  `json:"highlight_color,omitempty"`
	AllPages         *bool    `json:"all_pages,omitempty"`
	TrimWhitespace   *bool    `json:"trim_whitespace,omitempty"`
	NormalizeUnicode *bool    `json:"normalize_unicode,omitempty"`
	Exclude          []string `json:"exclude,omitempty"`
	DPI              *int     `json:"dpi,omitempty"`
	ShiftThreshold   *int     `json:"shift_threshold,omitempty"`
	StartPage        *int     `json:"start_page,omitempty"`
	EndPage          *int     `json:"end_page,omitempty"`
}

type PairSpec struct {
	File1      string   `json:"file1"`
	File2      string   `json:"file2"`
	Identifier string   `json:"identifier,omitempty"`
	Options    *Options `json:"options,omitempty"`
}

type DirectorySpec struct {
	Left       string `json:"left"`
	Right      string `json:"right"`
	SkipHidden bool   `json:"skip_hidden,omitempty"`
}

// Job is one comparison ready to execute.
type Job struct {
	Identifier string
	File1      string
	File2      string
	Start      int
	End        int
	Config     compare.Config

	seq int // position within a RunAll batch
}

// Parse validates data against the job-file schema and decodes it.
func Parse(data []byte) (*File, error) {
	if err := validateJSONAgainstSchema(jobFileSchema, data); err != nil {
		return nil, common.NewAppError(common.CodeUsage, "job file", fmt.Errorf("%w: %w", common.ErrValidation, err))
	}
	var f File
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, common.NewAppError(common.CodeUsage, "job file", fmt.Errorf("%w: %w", common.ErrInvalidInput, err))
	}
	return &f, nil
}

// ParsePair validates and decodes a single pair object, the shape used by
// remote compare requests.
func ParsePair(data []byte) (*PairSpec, error) {
	if err := validateJSONAgainstSchema(pairSchema, data); err != nil {
		return nil, common.NewAppError(common.CodeUsage, "pair", fmt.Errorf("%w: %w", common.ErrValidation, err))
	}
	var p PairSpec
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, common.NewAppError(common.CodeUsage, "pair", fmt.Errorf("%w: %w", common.ErrInvalidInput, err))
	}
	return &p, nil
}

// Load reads and parses the job file at path. Relative paths inside the
// file are resolved against the file's directory.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, common.ResourceError("read job file", err)
	}
	f, err := Parse(data)
	if err != nil {
		return nil, err
	}
	f.resolvePaths(filepath.Dir(path))
	return f, nil
}

func (f *File) resolvePaths(base string) {
	abs := func(p string) string {
		if p == "" || filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(base, p)
	}
	for i := range f.Pairs {
		f.Pairs[i].File1 = abs(f.Pairs[i].File1)
		f.Pairs[i].File2 = abs(f.Pairs[i].File2)
	}
	if f.Directories != nil {
		f.Directories.Left = abs(f.Directories.Left)
		f.Directories.Right = abs(f.Directories.Right)
	}
}

// Expand turns the file into jobs: explicit pairs first, then the paired
// contents of the directories. base supplies every setting the file leaves
// unset. Orphans holds directory entries with no counterpart.
func (f *File) Expand(base compare.Config) (jobs []Job, orphans []string, err error) {
	fileCfg, start, end, err := f.Options.apply(base, pages.Unspecified, pages.Unspecified)
	if err != nil {
		return nil, nil, err
	}

	for i, p := range f.Pairs {
		cfg, s, e, err := p.Options.apply(fileCfg, start, end)
		if err != nil {
			return nil, nil, fmt.Errorf("pair %d: %w", i+1, err)
		}
		id := p.Identifier
		if id == "" {
			id = compare.Identifier(p.File1)
		}
		jobs = append(jobs, Job{Identifier: id, File1: p.File1, File2: p.File2, Start: s, End: e, Config: cfg})
	}

	if f.Directories != nil {
		pairs, missing, err := PairDirectories(f.Directories.Left, f.Directories.Right, f.Directories.SkipHidden)
		if err != nil {
			return nil, nil, err
		}
		for _, p := range pairs {
			jobs = append(jobs, Job{Identifier: p.Identifier(), File1: p.Left, File2: p.Right, Start: start, End: end, Config: fileCfg})
		}
		orphans = missing
	}
	return jobs, orphans, nil
}

func (o *Options) apply(base compare.Config, start, end int) (compare.Config, int, int, error) {
	cfg := base
	if o == nil {
		return cfg, start, end, nil
	}
	var err error
	invalid := func(field string, err error) error {
		return common.NewAppError(common.CodeUsage, field, fmt.Errorf("%w: %w", common.ErrInvalidInput, err))
	}
	if o.Mode != nil {
		if cfg.Mode, err = constants.ParseMode(*o.Mode); err != nil {
			return cfg, 0, 0, invalid("mode", err)
		}
	}
	if o.Strategy != nil {
		if cfg.Strategy, err = constants.ParseStrategy(*o.Strategy); err != nil {
			return cfg, 0, 0, invalid("strategy", err)
		}
	}
	if o.HighlightColor != nil {
		if cfg.HighlightColor, err = imaging.ParseColor(*o.HighlightColor); err != nil {
			return cfg, 0, 0, invalid("highlight_color", err)
		}
	}
	if o.Exclude != nil {
		if cfg.Exclude, err = diff.CompileExcludes(o.Exclude); err != nil {
			return cfg, 0, 0, err
		}
	}
	setBool(&cfg.Highlight, o.Highlight)
	setBool(&cfg.CompareAllPages, o.AllPages)
	setBool(&cfg.TrimWhitespace, o.TrimWhitespace)
	setBool(&cfg.NormalizeUnicode, o.NormalizeUnicode)
	setInt(&cfg.DPI, o.DPI)
	if o.ShiftThreshold != nil {
		cfg.ShiftThreshold = compare.ThresholdFromSetting(*o.ShiftThreshold)
	}
	setInt(&start, o.StartPage)
	setInt(&end, o.EndPage)
	return cfg, start, end, nil
}

func setBool(dst *bool, v *bool) {
	if v != nil {
		*dst = *v
	}
}

func setInt(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}
