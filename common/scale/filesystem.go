package scale

import (
	"strconv"
	"strings"
)

// Property is one attribute of a filesystem as reported by mmlsfs. Remarks qualify which storage
// pool the value applies to when the attribute is reported more than once.
type Property struct {
	Field   string `json:"fieldName"`
	Data    string `json:"data"`
	Remarks string `json:"remarks,omitempty"`
}

type Filesystem struct {
	Device     string     `json:"deviceName"`
	Properties []Property `json:"properties"`
}

// Lookup returns the data of the last property whose field name contains the provided name.
func (f Filesystem) Lookup(field string) (string, bool) {
	data, found := "", false
	for _, p := range f.Properties {
		if strings.Contains(p.Field, field) {
			data, found = p.Data, true
		}
	}
	return data, found
}

// LookupRemark is like Lookup but also requires the remarks to contain the provided value.
func (f Filesystem) LookupRemark(field string, remark string) (string, bool) {
	data, found := "", false
	for _, p := range f.Properties {
		if strings.Contains(p.Field, field) && strings.Contains(p.Remarks, remark) {
			data, found = p.Data, true
		}
	}
	return data, found
}

func (f Filesystem) get(field string) string {
	data, _ := f.Lookup(field)
	return data
}

func (f Filesystem) getBool(field string) bool {
	data := f.get(field)
	return strings.Contains(data, "Yes") || strings.Contains(data, "yes")
}

func (f Filesystem) getList(field string) []string {
	out := []string{}
	for _, item := range strings.Split(f.get(field), ";") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func (f Filesystem) MinFragmentSize() string { return f.get("minFragmentSize") }
func (f Filesystem) InodeSize() string       { return f.get("inodeSize") }
func (f Filesystem) IndirectBlockSize() string {
	return f.get("indirectBlockSize")
}
func (f Filesystem) DefaultMetadataReplicas() string { return f.get("defaultMetadataReplicas") }
func (f Filesystem) MaxMetadataReplicas() string     { return f.get("maxMetadataReplicas") }
func (f Filesystem) DefaultDataReplicas() string     { return f.get("defaultDataReplicas") }
func (f Filesystem) MaxDataReplicas() string         { return f.get("maxDataReplicas") }
func (f Filesystem) BlockAllocationType() string     { return f.get("blockAllocationType") }
func (f Filesystem) FileLockingSemantics() string    { return f.get("fileLockingSemantics") }
func (f Filesystem) ACLSemantics() string            { return f.get("ACLSemantics") }
func (f Filesystem) NumNodes() string                { return f.get("numNodes") }
func (f Filesystem) QuotasAccountingEnabled() string { return f.get("quotasAccountingEnabled") }
func (f Filesystem) QuotasEnforced() string          { return f.get("quotasEnforced") }
func (f Filesystem) FilesetdfEnabled() bool          { return f.getBool("filesetdfEnabled") }
func (f Filesystem) FilesystemVersion() string       { return f.get("filesystemVersion") }
func (f Filesystem) LogReplicas() string             { return f.get("logReplicas") }
func (f Filesystem) Encryption() bool                { return f.getBool("encryption") }
func (f Filesystem) MaintenanceMode() bool           { return f.getBool("maintenanceMode") }
func (f Filesystem) MaxNumberOfInodes() string       { return f.get("maxNumberOfInodes") }
func (f Filesystem) DefaultMountPoint() string       { return f.get("defaultMountPoint") }
func (f Filesystem) MountPriority() string           { return f.get("mountPriority") }
func (f Filesystem) AutomaticMountOption() string    { return f.get("automaticMountOption") }
func (f Filesystem) AdditionalMountOptions() string  { return f.get("additionalMountOptions") }
func (f Filesystem) DMAPIEnabled() bool              { return f.getBool("DMAPIEnabled") }
func (f Filesystem) StoragePools() []string          { return f.getList("storagePools") }
func (f Filesystem) Disks() []string                 { return f.getList("disks") }

// BlockSize returns the block size of the system pool.
func (f Filesystem) BlockSize() string {
	if data, ok := f.LookupRemark("blockSize", "system pool"); ok {
		return data
	}
	return f.get("blockSize")
}

// OtherPoolsBlockSize returns the block size of all pools except the system pool.
func (f Filesystem) OtherPoolsBlockSize() string {
	data, _ := f.LookupRemark("blockSize", "other pools")
	return data
}

// BlockSizeBytes parses the system pool block size (e.g. "4194304") into bytes.
func (f Filesystem) BlockSizeBytes() (uint64, error) {
	return strconv.ParseUint(f.BlockSize(), 10, 64)
}
