// Package activation declares the service ordering graph each role hands to
// the host's process supervisor, and renders it as systemd unit files. The
// graph is declarative: the supervisor enforces it, this code never does.
// The ordering is load-bearing — serving DHCP before the gateway address
// exists is a defect, not a transient error.
package activation

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"meshup/internal/atomicfile"
	"meshup/internal/check"
)

// Relation classifies a dependency edge the supervisor enforces.
type Relation uint8

const (
	RelationAfter    Relation = iota // ordering only
	RelationRequires                 // hard dependency, stops with the prerequisite
	RelationBindsTo                  // requires plus lifetime binding
)

func (r Relation) String() string {
	switch r {
	case RelationAfter:
		return "after"
	case RelationRequires:
		return "requires"
	case RelationBindsTo:
		return "binds-to"
	default:
		check.Assertf(false, "unknown relation: %d", r)
		return "unknown"
	}
}

// directive returns the unit-file key expressing the relation.
func (r Relation) directive() string {
	switch r {
	case RelationAfter:
		return "After"
	case RelationRequires:
		return "Requires"
	case RelationBindsTo:
		return "BindsTo"
	default:
		check.Assertf(false, "unknown relation: %d", r)
		return "After"
	}
}

// Edge states that Unit must start in the given relation to Prerequisite.
type Edge struct {
	Unit         string
	Prerequisite string
	Relation     Relation
}

func (e Edge) String() string {
	return fmt.Sprintf("%s %s %s", e.Unit, e.Relation, e.Prerequisite)
}

// Unit describes one supervised service.
type Unit struct {
	Name            string // unit name without the .service suffix
	Description     string
	Type            string // "oneshot" or "simple"
	ExecStart       string
	RemainAfterExit bool   // lingering oneshot; never combined with a restart policy
	Restart         string // restart policy, empty leaves the supervisor default
	RestartSec      time.Duration

	// Restart bounding. Zero values leave the supervisor defaults.
	StartLimitInterval time.Duration
	StartLimitBurst    int

	WantedBy string // install target
}

// Graph is a set of units plus the ordering edges between them.
// Read-only once declared; the supervisor interprets it.
type Graph struct {
	Units []Unit
	Edges []Edge
}

// UnitFile is a rendered unit ready to install.
type UnitFile struct {
	Name    string // file name, e.g. meshup-node.service
	Content string
}

func (g Graph) unit(name string) (Unit, bool) {
	for _, u := range g.Units {
		if u.Name == name {
			return u, true
		}
	}
	return Unit{}, false
}

// prerequisites collects the names this unit depends on through rel,
// in declaration order.
func (g Graph) prerequisites(unit string, rel Relation) []string {
	var out []string
	for _, e := range g.Edges {
		if e.Unit == unit && e.Relation == rel {
			out = append(out, qualify(e.Prerequisite))
		}
	}
	return out
}

// qualify renders a prerequisite for a unit-file directive. Bare names get
// the .service suffix; names carrying a suffix (foo.target) pass through.
func qualify(name string) string {
	if strings.Contains(name, ".") {
		return name
	}
	return name + ".service"
}

// Validate checks the graph is closed: unit names are unique, every unit
// has a start command and a supported type, and edges connect declared
// units. Prerequisites with an explicit suffix are supervisor-provided
// targets and exempt from the declaration check.
func (g Graph) Validate() error {
	declared := map[string]bool{}
	for _, u := range g.Units {
		if u.Name == "" {
			return errors.New("unit with empty name")
		}
		if declared[u.Name] {
			return fmt.Errorf("unit %q declared twice", u.Name)
		}
		declared[u.Name] = true
		if u.ExecStart == "" {
			return fmt.Errorf("unit %q has no start command", u.Name)
		}
		if u.Type != "oneshot" && u.Type != "simple" {
			return fmt.Errorf("unit %q has unsupported type %q", u.Name, u.Type)
		}
		// systemd refuses this combination at load time, which would take
		// every dependent edge down with the unloadable unit.
		if u.Type == "oneshot" && u.RemainAfterExit && u.Restart != "" && u.Restart != "no" {
			return fmt.Errorf("unit %q: restart policy %q not allowed on a lingering oneshot", u.Name, u.Restart)
		}
	}
	for _, e := range g.Edges {
		if !declared[e.Unit] {
			return fmt.Errorf("edge %q: dependent unit not declared", e)
		}
		if !declared[e.Prerequisite] && !strings.Contains(e.Prerequisite, ".") {
			return fmt.Errorf("edge %q: prerequisite not declared", e)
		}
	}
	return nil
}

// Render returns the unit file text for the named unit, edges included.
// Output is deterministic: directives appear in a fixed order and
// prerequisites in declaration order.
func (g Graph) Render(name string) (string, error) {
	u, ok := g.unit(name)
	if !ok {
		return "", fmt.Errorf("unit %q not declared", name)
	}

	var b strings.Builder
	b.WriteString("[Unit]\n")
	fmt.Fprintf(&b, "Description=%s\n", u.Description)
	for _, rel := range []Relation{RelationRequires, RelationBindsTo, RelationAfter} {
		if names := g.prerequisites(u.Name, rel); len(names) > 0 {
			fmt.Fprintf(&b, "%s=%s\n", rel.directive(), strings.Join(names, " "))
		}
	}
	if u.StartLimitInterval > 0 {
		fmt.Fprintf(&b, "StartLimitIntervalSec=%d\n", int(u.StartLimitInterval.Seconds()))
	}
	if u.StartLimitBurst > 0 {
		fmt.Fprintf(&b, "StartLimitBurst=%d\n", u.StartLimitBurst)
	}

	b.WriteString("\n[Service]\n")
	fmt.Fprintf(&b, "Type=%s\n", u.Type)
	if u.RemainAfterExit {
		b.WriteString("RemainAfterExit=yes\n")
	}
	fmt.Fprintf(&b, "ExecStart=%s\n", u.ExecStart)
	if u.Restart != "" {
		fmt.Fprintf(&b, "Restart=%s\n", u.Restart)
	}
	if u.RestartSec > 0 {
		fmt.Fprintf(&b, "RestartSec=%d\n", int(u.RestartSec.Seconds()))
	}

	if u.WantedBy != "" {
		b.WriteString("\n[Install]\n")
		fmt.Fprintf(&b, "WantedBy=%s\n", u.WantedBy)
	}
	return b.String(), nil
}

// Files renders every declared unit, sorted by file name.
func (g Graph) Files() ([]UnitFile, error) {
	files := make([]UnitFile, 0, len(g.Units))
	for _, u := range g.Units {
		content, err := g.Render(u.Name)
		if err != nil {
			return nil, err
		}
		files = append(files, UnitFile{Name: u.Name + ".service", Content: content})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })
	return files, nil
}

// Install writes the rendered unit files under dir (normally
// /etc/systemd/system), leaving files that already carry the canonical
// content untouched. It returns the names of the files it wrote.
func (g Graph) Install(dir string) ([]string, error) {
	files, err := g.Files()
	if err != nil {
		return nil, err
	}
	var wrote []string
	for _, f := range files {
		changed, err := atomicfile.WriteIfChanged(filepath.Join(dir, f.Name), []byte(f.Content), 0o644)
		if err != nil {
			return nil, fmt.Errorf("install %s: %w", f.Name, err)
		}
		if changed {
			wrote = append(wrote, f.Name)
		}
	}
	return wrote, nil
}
