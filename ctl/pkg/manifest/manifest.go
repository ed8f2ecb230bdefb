// Package manifest defines a YAML manifest describing nodes that should be added to a cluster and
// renders it into the node descriptor file accepted by mmaddnode. The manifest is friendlier to
// write and review than the colon separated descriptor format and allows a license to be set per
// node.
package manifest

import (
	"fmt"
	"slices"
	"strings"

	"github.com/spectrumscale/scale-go/common/scale"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

type Manifest struct {
	Common Common `yaml:"common"`
	Nodes  []Node `yaml:"nodes"`
}

// Common holds defaults applied to every node that does not set its own value.
type Common struct {
	Designation Designation   `yaml:"designation"`
	License     scale.License `yaml:"license"`
}

type Node struct {
	// Name is the daemon node name used for GPFS communication.
	Name string `yaml:"name"`
	// AdminName is the name used for administration commands. Defaults to Name.
	AdminName   string        `yaml:"admin-name,omitempty"`
	Designation Designation   `yaml:"designation,omitempty"`
	License     scale.License `yaml:"license,omitempty"`
}

// Designation is a combination of "manager" or "client" and "quorum" or "nonquorum", written
// as for example "quorum-manager".
type Designation string

var designationTokens = map[string]string{
	"manager":   "manager",
	"client":    "manager",
	"quorum":    "quorum",
	"nonquorum": "quorum",
}

func (d Designation) Validate() error {
	if d == "" {
		return nil
	}
	seen := map[string]string{}
	for _, token := range strings.Split(string(d), "-") {
		group, ok := designationTokens[token]
		if !ok {
			return fmt.Errorf("invalid designation %q: unknown value %q", d, token)
		}
		if other, dup := seen[group]; dup {
			return fmt.Errorf("invalid designation %q: %q conflicts with %q", d, token, other)
		}
		seen[group] = token
	}
	return nil
}

func (d *Designation) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed := Designation(strings.ToLower(strings.TrimSpace(s)))
	if err := parsed.Validate(); err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Load reads and verifies a manifest from the provided path.
func Load(fs afero.Fs, path string) (Manifest, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return Manifest{}, fmt.Errorf("unable to read manifest: %w", err)
	}
	return Parse(data)
}

func Parse(data []byte) (Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return Manifest{}, fmt.Errorf("unable to parse manifest: %w", err)
	}
	if err := m.Verify(); err != nil {
		return Manifest{}, err
	}
	m.InheritCommon()
	return m, nil
}

// Verify checks every node has a unique name and valid settings.
func (m *Manifest) Verify() error {
	if len(m.Nodes) == 0 {
		return fmt.Errorf("manifest does not define any nodes")
	}
	if m.Common.License != "" {
		if err := m.Common.License.Set(m.Common.License.String()); err != nil {
			return err
		}
	}
	names := []string{}
	for i := range m.Nodes {
		n := &m.Nodes[i]
		if strings.TrimSpace(n.Name) == "" {
			return fmt.Errorf("node %d does not have a name", i)
		}
		if strings.Contains(n.Name, ":") || strings.Contains(n.AdminName, ":") {
			return fmt.Errorf("node names must not contain colons: %s", n.Name)
		}
		if slices.Contains(names, n.Name) {
			return fmt.Errorf("node %s is defined more than once", n.Name)
		}
		names = append(names, n.Name)
		if n.License != "" {
			if err := n.License.Set(n.License.String()); err != nil {
				return fmt.Errorf("node %s: %w", n.Name, err)
			}
		}
	}
	return nil
}

// InheritCommon applies the common defaults to all nodes.
func (m *Manifest) InheritCommon() {
	for i := range m.Nodes {
		n := &m.Nodes[i]
		if n.Designation == "" {
			n.Designation = m.Common.Designation
		}
		if n.License == "" {
			n.License = m.Common.License
		}
		if n.License == "" {
			n.License = scale.ClientLicense
		}
	}
}

// Names returns the admin names of all nodes.
func (m Manifest) Names() []string {
	names := make([]string, 0, len(m.Nodes))
	for _, n := range m.Nodes {
		names = append(names, n.AdminNodeName())
	}
	return names
}

// ByLicense groups the admin names of all nodes by license.
func (m Manifest) ByLicense() map[scale.License][]string {
	groups := map[scale.License][]string{}
	for _, n := range m.Nodes {
		groups[n.License] = append(groups[n.License], n.AdminNodeName())
	}
	return groups
}

// AdminNodeName returns the admin name of the node, which defaults to its daemon name.
func (n Node) AdminNodeName() string {
	if n.AdminName != "" {
		return n.AdminName
	}
	return n.Name
}

// Filter returns a copy of the manifest only containing nodes for which keep returns true.
func (m Manifest) Filter(keep func(n Node) bool) Manifest {
	filtered := Manifest{Common: m.Common, Nodes: []Node{}}
	for _, n := range m.Nodes {
		if keep(n) {
			filtered.Nodes = append(filtered.Nodes, n)
		}
	}
	return filtered
}

// Stanza renders the node descriptors in the form NodeName:NodeDesignations:AdminNodeName.
func (m Manifest) Stanza() string {
	var sb strings.Builder
	for _, n := range m.Nodes {
		fmt.Fprintf(&sb, "%s:%s:%s\n", n.Name, n.Designation, n.AdminName)
	}
	return sb.String()
}

// WriteStanza writes the node descriptors to a new temporary file in dir and returns its path. The
// caller is responsible for removing the file.
func (m Manifest) WriteStanza(fs afero.Fs, dir string) (string, error) {
	f, err := afero.TempFile(fs, dir, "scalectl-nodes-*.stanza")
	if err != nil {
		return "", fmt.Errorf("unable to create stanza file: %w", err)
	}
	defer f.Close()
	if _, err := f.WriteString(m.Stanza()); err != nil {
		return "", fmt.Errorf("unable to write stanza file: %w", err)
	}
	return f.Name(), nil
}

// Matches returns true if the node describes the cluster node.
func (n Node) Matches(node scale.ClusterNode) bool {
	return node.Matches(n.Name) || (n.AdminName != "" && node.Matches(n.AdminName))
}

// LoadStanza reads an existing node descriptor file (NodeName:NodeDesignations:AdminNodeName per
// line) and returns it as a manifest where every node uses the provided license.
func LoadStanza(fs afero.Fs, path string, license scale.License) (Manifest, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return Manifest{}, fmt.Errorf("unable to read stanza file: %w", err)
	}
	return ParseStanza(data, license)
}

func ParseStanza(data []byte, license scale.License) (Manifest, error) {
	m := Manifest{Common: Common{License: license}, Nodes: []Node{}}
	for i, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Split(line, ":")
		if len(fields) > 3 {
			return Manifest{}, fmt.Errorf("invalid node descriptor on line %d: %q", i+1, line)
		}
		n := Node{Name: fields[0]}
		if len(fields) > 1 {
			n.Designation = Designation(strings.ToLower(fields[1]))
			if err := n.Designation.Validate(); err != nil {
				return Manifest{}, fmt.Errorf("line %d: %w", i+1, err)
			}
		}
		if len(fields) > 2 {
			n.AdminName = fields[2]
		}
		m.Nodes = append(m.Nodes, n)
	}
	if err := m.Verify(); err != nil {
		return Manifest{}, err
	}
	m.InheritCommon()
	return m, nil
}
