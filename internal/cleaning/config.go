package cleaning

import (
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
)

// Config is the external cleaning configuration. Every section is
// optional; a nil section is resolved to the documented default, while a
// present section is honored exactly as written. A nil *Config selects
// auto mode, which normalizes all text columns and always removes
// duplicates and 3-sigma outliers.
type Config struct {
	Dtypes       map[string]string  `yaml:"dtypes,omitempty" json:"dtypes,omitempty"`
	Missing      *MissingConfig     `yaml:"missing,omitempty" json:"missing,omitempty"`
	TextCleaning *TextCleaningConfig `yaml:"text_cleaning,omitempty" json:"text_cleaning,omitempty"`
	Duplicates   *DuplicatesConfig  `yaml:"duplicates,omitempty" json:"duplicates,omitempty"`
	Outliers     *OutliersConfig    `yaml:"outliers,omitempty" json:"outliers,omitempty"`
	Sort         *SortConfig        `yaml:"sort,omitempty" json:"sort,omitempty"`
	Split        *SplitConfig       `yaml:"split,omitempty" json:"split,omitempty"`
}

// MissingConfig controls row drops and per-column fill strategies.
// Fill values are strategy tags (auto, zero, unknown, median, mean, mode)
// or a literal constant.
type MissingConfig struct {
	DropRowsIfMissingAnyOf []string          `yaml:"drop_rows_if_missing_any_of,omitempty" json:"drop_rows_if_missing_any_of,omitempty"`
	Fill                   map[string]string `yaml:"fill,omitempty" json:"fill,omitempty"`
}

// TextCleaningConfig selects per-column text transformations.
type TextCleaningConfig struct {
	LowerColumns       []string          `yaml:"lower_columns,omitempty" json:"lower_columns,omitempty"`
	StripSpacesColumns []string          `yaml:"strip_spaces_columns,omitempty" json:"strip_spaces_columns,omitempty"`
	RemoveChars        RemoveCharsConfig `yaml:"remove_chars,omitempty" json:"remove_chars,omitempty"`
}

// RemoveCharsConfig strips characters matching a pattern from columns.
type RemoveCharsConfig struct {
	Columns []string `yaml:"columns,omitempty" json:"columns,omitempty"`
	Pattern string   `yaml:"pattern,omitempty" json:"pattern,omitempty"`
}

// DuplicatesConfig controls duplicate-row detection.
type DuplicatesConfig struct {
	Subset []string `yaml:"subset,omitempty" json:"subset,omitempty"`
	Keep   string   `yaml:"keep,omitempty" json:"keep,omitempty" validate:"omitempty,oneof=first last"`
}

// OutliersConfig controls z-score outlier removal.
type OutliersConfig struct {
	ZScore ZScoreConfig `yaml:"zscore,omitempty" json:"zscore,omitempty"`
}

// ZScoreConfig names the evaluated columns and the |z| cutoff.
type ZScoreConfig struct {
	Columns   []string `yaml:"columns,omitempty" json:"columns,omitempty"`
	Threshold float64  `yaml:"threshold,omitempty" json:"threshold,omitempty" validate:"omitempty,gt=0"`
}

// SortConfig sorts rows by the given keys. Ascending may hold one global
// direction or one direction per key; empty means ascending.
type SortConfig struct {
	By        []string `yaml:"by,omitempty" json:"by,omitempty"`
	Ascending []bool   `yaml:"ascending,omitempty" json:"ascending,omitempty"`
}

// SplitConfig carves the cleaned table into train/validation/test sets.
// Fractions are treated permissively: relative sizing is derived from
// val+test combined, so they need not sum to exactly 1.
type SplitConfig struct {
	Enabled      bool    `yaml:"enabled" json:"enabled"`
	TargetColumn string  `yaml:"target_column,omitempty" json:"target_column,omitempty"`
	Stratify     bool    `yaml:"stratify,omitempty" json:"stratify,omitempty"`
	TrainSize    float64 `yaml:"train_size,omitempty" json:"train_size,omitempty" validate:"omitempty,gt=0,lt=1"`
	ValSize      float64 `yaml:"val_size,omitempty" json:"val_size,omitempty" validate:"omitempty,gt=0,lt=1"`
	TestSize     float64 `yaml:"test_size,omitempty" json:"test_size,omitempty" validate:"omitempty,gt=0,lt=1"`
	OutputDir    string  `yaml:"output_dir,omitempty" json:"output_dir,omitempty"`
}

// FillKind enumerates the closed set of fill strategies.
type FillKind uint8

const (
	FillAuto FillKind = iota
	FillZero
	FillUnknown
	FillMedian
	FillMean
	FillMode
	FillConstant
)

// FillStrategy is a tagged fill variant; Constant carries the literal
// value for FillConstant.
type FillStrategy struct {
	Kind     FillKind
	Constant string
}

// ParseFillStrategy maps an external strategy tag to its variant. Any
// unrecognized tag is a literal constant fill.
func ParseFillStrategy(s string) FillStrategy {
	switch s {
	case "", "auto":
		return FillStrategy{Kind: FillAuto}
	case "zero":
		return FillStrategy{Kind: FillZero}
	case "unknown":
		return FillStrategy{Kind: FillUnknown}
	case "median":
		return FillStrategy{Kind: FillMedian}
	case "mean":
		return FillStrategy{Kind: FillMean}
	case "mode":
		return FillStrategy{Kind: FillMode}
	default:
		return FillStrategy{Kind: FillConstant, Constant: s}
	}
}

func (f FillStrategy) String() string {
	switch f.Kind {
	case FillZero:
		return "zero"
	case FillUnknown:
		return "unknown"
	case FillMedian:
		return "median"
	case FillMean:
		return "mean"
	case FillMode:
		return "mode"
	case FillConstant:
		return fmt.Sprintf("constant %q", f.Constant)
	default:
		return "auto"
	}
}

// TargetType is a dtype-coercion target.
type TargetType string

const (
	TargetFloat       TargetType = "float"
	TargetInteger     TargetType = "int"
	TargetTemporal    TargetType = "datetime"
	TargetCategorical TargetType = "category"
	TargetText        TargetType = "string"
)

// parseTargetType maps an external dtype name to a coercion target.
// Unknown names are reported so the stage can skip them.
func parseTargetType(s string) (TargetType, bool) {
	switch s {
	case "float", "float64", "numeric":
		return TargetFloat, true
	case "int", "int64", "integer":
		return TargetInteger, true
	case "datetime", "date", "temporal":
		return TargetTemporal, true
	case "category", "categorical":
		return TargetCategorical, true
	case "string", "str", "text", "object":
		return TargetText, true
	default:
		return "", false
	}
}

// Mode selects between the two cleaning behaviors: auto normalizes all
// text columns and always dedups and removes 3-sigma outliers; explicit
// follows the supplied configuration exactly.
type Mode string

const (
	ModeAuto     Mode = "auto"
	ModeExplicit Mode = "explicit-config"
)

// SortKey is one resolved sort key with its direction.
type SortKey struct {
	Column    string
	Ascending bool
}

// Resolved is a fully-populated configuration: every omitted section of
// the external config replaced with its default for the given table.
type Resolved struct {
	Mode             Mode
	Dtypes           map[string]TargetType
	UnknownDtypes    map[string]string
	DropRowsMissing  []string
	Fill             map[string]FillStrategy
	LowerColumns     []string
	StripColumns     []string
	RemoveColumns    []string
	RemovePattern    *regexp.Regexp
	BadRemovePattern string
	DupSubset        []string
	DupKeepLast      bool
	OutlierColumns   []string
	OutlierThreshold float64
	SortBy           []SortKey
	Split            SplitConfig
}

// DefaultZScoreThreshold is the z-score cutoff used when none is given.
const DefaultZScoreThreshold = 3.0

// Resolve fills every omitted section of cfg with defaults derived from
// the table. A nil cfg resolves to auto mode. Resolution is permissive:
// column names that do not exist in the table are kept (the stages skip
// them), and a malformed remove_chars pattern disables that rule rather
// than failing.
func Resolve(t *Table, cfg *Config) *Resolved {
	r := &Resolved{
		Mode:             ModeExplicit,
		Dtypes:           make(map[string]TargetType),
		UnknownDtypes:    make(map[string]string),
		Fill:             make(map[string]FillStrategy),
		OutlierThreshold: DefaultZScoreThreshold,
	}
	if cfg == nil {
		cfg = &Config{}
		r.Mode = ModeAuto
	}

	for col, name := range cfg.Dtypes {
		if target, ok := parseTargetType(name); ok {
			r.Dtypes[col] = target
		} else {
			r.UnknownDtypes[col] = name
		}
	}
	if len(cfg.Dtypes) == 0 {
		for i := range t.Columns {
			col := &t.Columns[i]
			if col.IsNumeric() {
				r.Dtypes[col.Name] = TargetFloat
			} else {
				r.Dtypes[col.Name] = TargetCategorical
			}
		}
	}

	if cfg.Missing != nil {
		r.DropRowsMissing = cfg.Missing.DropRowsIfMissingAnyOf
		for col, tag := range cfg.Missing.Fill {
			r.Fill[col] = ParseFillStrategy(tag)
		}
	} else {
		// Kind-based defaults for every column: median for numeric,
		// mode for everything else.
		for i := range t.Columns {
			col := &t.Columns[i]
			if col.IsNumeric() {
				r.Fill[col.Name] = FillStrategy{Kind: FillMedian}
			} else {
				r.Fill[col.Name] = FillStrategy{Kind: FillMode}
			}
		}
	}

	switch {
	case cfg.TextCleaning != nil:
		r.LowerColumns = cfg.TextCleaning.LowerColumns
		r.StripColumns = cfg.TextCleaning.StripSpacesColumns
		r.RemoveColumns = cfg.TextCleaning.RemoveChars.Columns
		if p := cfg.TextCleaning.RemoveChars.Pattern; p != "" {
			re, err := regexp.Compile(p)
			if err != nil {
				slog.Warn("ignoring malformed remove_chars pattern",
					slog.String("pattern", p),
					slog.String("error", err.Error()))
				r.BadRemovePattern = p
			} else {
				r.RemovePattern = re
			}
		}
	case r.Mode == ModeAuto:
		// Auto mode unconditionally normalizes every text column.
		r.LowerColumns = t.TextColumns()
		r.StripColumns = t.TextColumns()
	}

	if cfg.Duplicates != nil {
		r.DupSubset = cfg.Duplicates.Subset
		r.DupKeepLast = cfg.Duplicates.Keep == "last"
	}

	if cfg.Outliers != nil {
		r.OutlierColumns = cfg.Outliers.ZScore.Columns
		if cfg.Outliers.ZScore.Threshold > 0 {
			r.OutlierThreshold = cfg.Outliers.ZScore.Threshold
		}
	} else {
		r.OutlierColumns = t.NumericColumns()
	}

	if cfg.Sort != nil {
		for i, col := range cfg.Sort.By {
			key := SortKey{Column: col, Ascending: true}
			switch {
			case len(cfg.Sort.Ascending) == 1:
				key.Ascending = cfg.Sort.Ascending[0]
			case i < len(cfg.Sort.Ascending):
				key.Ascending = cfg.Sort.Ascending[i]
			}
			r.SortBy = append(r.SortBy, key)
		}
	}

	if cfg.Split != nil && cfg.Split.Enabled {
		r.Split = *cfg.Split
		if r.Split.TrainSize == 0 {
			r.Split.TrainSize = 0.7
		}
		if r.Split.ValSize == 0 {
			r.Split.ValSize = 0.15
		}
		if r.Split.TestSize == 0 {
			r.Split.TestSize = 0.15
		}
	}

	return r
}

// Suggest builds the configuration the resolver would apply in auto mode,
// in external form, so callers can show and edit it before cleaning.
func Suggest(t *Table) *Config {
	cfg := &Config{
		Dtypes:  make(map[string]string),
		Missing: &MissingConfig{Fill: make(map[string]string)},
		TextCleaning: &TextCleaningConfig{
			LowerColumns:       t.TextColumns(),
			StripSpacesColumns: t.TextColumns(),
		},
		Duplicates: &DuplicatesConfig{Keep: "first"},
		Outliers: &OutliersConfig{ZScore: ZScoreConfig{
			Columns:   t.NumericColumns(),
			Threshold: DefaultZScoreThreshold,
		}},
		Split: &SplitConfig{Enabled: false},
	}
	for i := range t.Columns {
		col := &t.Columns[i]
		if col.IsNumeric() {
			cfg.Dtypes[col.Name] = string(TargetFloat)
			cfg.Missing.Fill[col.Name] = "median"
		} else {
			cfg.Dtypes[col.Name] = string(TargetCategorical)
			cfg.Missing.Fill[col.Name] = "mode"
		}
	}
	return cfg
}

// formatThreshold renders a z-score threshold without trailing zeros.
func formatThreshold(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
