package validation

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"regexp"

	"github.com/ogero/stremio-addon-sdk/pkg/stremio"
	"github.com/samber/lo"
)

// MaxManifestSize is the serialized manifest byte ceiling enforced by LintSchema.
const MaxManifestSize = 8192

var (
	semverRE  = regexp.MustCompile(`^(0|[1-9]\d*)\.(0|[1-9]\d*)\.(0|[1-9]\d*)(?:-[0-9A-Za-z-]+(?:\.[0-9A-Za-z-]+)*)?(?:\+[0-9A-Za-z-]+(?:\.[0-9A-Za-z-]+)*)?$`)
	addonIDRE = regexp.MustCompile(`^[A-Za-z0-9_-]+(\.[A-Za-z0-9_-]+)+$`)

	configTypes = []string{"text", "number", "password", "checkbox", "select"}
)

// LintResult is the outcome of Lint.
type LintResult struct {
	Valid    bool
	Errors   []error
	Warnings []error
}

// ValidateAddonID checks that id is a dot-separated identifier such as "com.example.addon".
func ValidateAddonID(id string) error {
	if !addonIDRE.MatchString(id) {
		return errors.New("manifest.id should be a dot-separated identifier, e.g. com.example.addon")
	}
	return nil
}

// ValidateVersion checks that version is a semantic version string.
func ValidateVersion(version string) error {
	if !semverRE.MatchString(version) {
		return errors.New("manifest.version must be a valid semver string")
	}
	return nil
}

// Lint checks m for problems beyond its JSON shape.
func Lint(m *stremio.Manifest) LintResult {
	var res LintResult
	fail := func(format string, args ...any) { res.Errors = append(res.Errors, fmt.Errorf(format, args...)) }
	warn := func(format string, args ...any) { res.Warnings = append(res.Warnings, fmt.Errorf(format, args...)) }

	if m == nil {
		res.Errors = append(res.Errors, errors.New("manifest must be an object"))
		return res
	}

	if m.ID == "" {
		fail("manifest.id must be a string")
	} else if err := ValidateAddonID(m.ID); err != nil {
		res.Warnings = append(res.Warnings, err)
	}
	if m.Name == "" {
		fail("manifest.name must be a string")
	}
	if m.Description == "" {
		fail("manifest.description must be a string")
	}
	if err := ValidateVersion(m.Version); err != nil {
		res.Errors = append(res.Errors, err)
	}

	if len(m.Types) == 0 {
		fail("manifest.types must be a non-empty array")
	}

	for i, r := range m.Resources {
		if _, ok := stremio.ParseResource(string(r.Name)); !ok {
			fail("manifest.resources[%d]: unknown resource %q", i, r.Name)
		}
		if !r.IsShort() && len(r.Types) == 0 {
			fail("manifest.resources[%d].types must be a non-empty array", i)
		}
	}
	if len(m.DeclaredResources()) == 0 {
		fail("manifest must declare at least one resource")
	}

	declaresCatalog := lo.ContainsBy(m.Resources, func(r stremio.ResourceDecl) bool { return r.Name == stremio.ResourceCatalog })
	if declaresCatalog && len(m.Catalogs) == 0 {
		warn("manifest.resources contains catalog but manifest.catalogs is empty")
	}

	seen := map[string]struct{}{}
	for i, c := range m.Catalogs {
		if c.ID == "" || c.Type == "" {
			fail("manifest.catalogs[%d]: id and type must be set", i)
			continue
		}
		key := string(c.Type) + "/" + c.ID
		if _, ok := seen[key]; ok {
			fail("manifest.catalogs[%d]: duplicate catalog %s", i, key)
		}
		seen[key] = struct{}{}
		if c.Name == "" {
			warn("manifest.catalogs[%d]: name is empty", i)
		}
	}

	keys := map[string]struct{}{}
	for i, s := range m.Config {
		if s.Key == "" {
			fail("manifest.config[%d].key must be a string", i)
		} else if _, ok := keys[s.Key]; ok {
			fail("manifest.config[%d]: duplicate key %q", i, s.Key)
		}
		keys[s.Key] = struct{}{}
		if !lo.Contains(configTypes, s.Type) {
			fail("manifest.config[%d].type must be one of %v", i, configTypes)
		}
		if s.Type == "select" && len(s.Options) == 0 {
			fail("manifest.config[%d]: select settings need options", i)
		}
	}

	if hints := m.BehaviorHints; hints != nil {
		if hints.ConfigurationRequired && !hints.Configurable {
			warn("manifest.behaviorHints.configurationRequired is set without configurable")
		}
		if (hints.Configurable || hints.ConfigurationRequired) && !m.HasConfig() {
			warn("manifest.behaviorHints marks the addon configurable but manifest.config is empty")
		}
	}

	res.Valid = len(res.Errors) == 0
	return res
}

// LintSchema wraps base with the lint profile: lint errors become issues,
// lint warnings are logged and the serialized manifest must not exceed
// MaxManifestSize bytes. A nil base only decodes the input.
func LintSchema(base Schema, logger *slog.Logger) Schema {
	if logger == nil {
		logger = slog.Default()
	}
	return SchemaFunc(func(input any) Outcome {
		var m *stremio.Manifest
		if base != nil {
			out := base.Validate(input)
			result, ok := out.(Result)
			if !ok || len(result.Issues) > 0 {
				return out
			}
			m = result.Value
		} else {
			var err error
			if m, _, err = decode(input); err != nil {
				return issues(err.Error())
			}
		}

		lint := Lint(m)
		if !lint.Valid {
			return issues(lo.Map(lint.Errors, func(err error, _ int) string { return err.Error() })...)
		}
		for _, w := range lint.Warnings {
			logger.Warn("Manifest lint warning", "warning", w.Error())
		}

		b, err := json.Marshal(m)
		if err != nil {
			return issues(fmt.Sprintf("failed to json.Marshal manifest: %v", err))
		}
		if len(b) > MaxManifestSize {
			return issues("manifest size exceeds 8kb, which is incompatible with addonCollection API")
		}

		return Result{Value: m}
	})
}
