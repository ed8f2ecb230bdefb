package scale

import (
	"slices"
	"strings"
)

// RemarkServerNode marks NSDs that are served by cluster nodes (as opposed to directly attached).
const RemarkServerNode = "server node"

// NSD is a Network Shared Disk as reported by mmlsnsd. The first server is the primary.
type NSD struct {
	Name          string   `json:"name"`
	VolumeID      string   `json:"volumeId"`
	DeviceType    string   `json:"deviceType"`
	Servers       []string `json:"servers"`
	LocalDiskName string   `json:"localDiskName"`
	Remarks       string   `json:"remarks"`
}

func (n NSD) IsServerNode() bool {
	return n.Remarks == RemarkServerNode
}

// IsShared is true if the NSD is accessible through more than one server.
func (n NSD) IsShared() bool {
	return len(n.Servers) > 1
}

// ServedBy returns true if any of the node's identifiers is in the server list.
func (n NSD) ServedBy(node ClusterNode) bool {
	return slices.ContainsFunc(n.Servers, node.Matches)
}

// ServersWithout returns the server list with all entries referring to the node removed.
func (n NSD) ServersWithout(node ClusterNode) []string {
	remaining := []string{}
	for _, s := range n.Servers {
		if !node.Matches(s) {
			remaining = append(remaining, s)
		}
	}
	return remaining
}

// Disk is the per filesystem view of an NSD as reported by mmlsdisk.
type Disk struct {
	Name             string `json:"name"`
	Filesystem       string `json:"filesystem"`
	DriverType       string `json:"driverType"`
	SectorSize       string `json:"sectorSize"`
	FailureGroup     string `json:"failureGroup"`
	Metadata         bool   `json:"metadata"`
	Data             bool   `json:"data"`
	Status           string `json:"status"`
	Availability     string `json:"availability"`
	DiskID           string `json:"diskId"`
	StoragePool      string `json:"storagePool"`
	Remarks          string `json:"remarks"`
	NumQuorumDisks   string `json:"numQuorumDisks"`
	ReadQuorumValue  string `json:"readQuorumValue"`
	WriteQuorumValue string `json:"writeQuorumValue"`
	SizeKB           uint64 `json:"sizeKB"`
	DiskUID          string `json:"diskUid"`
	ThinDiskType     string `json:"thinDiskType"`
}

func (d Disk) IsDown() bool {
	return strings.Contains(strings.ToLower(d.Availability), "down")
}

// DiskCapacity is the capacity of one NSD within a filesystem as reported by mmdf. All sizes are KiB.
type DiskCapacity struct {
	NSD              string `json:"nsd"`
	StoragePool      string `json:"storagePool"`
	FailureGroup     string `json:"failureGroup"`
	Metadata         bool   `json:"metadata"`
	Data             bool   `json:"data"`
	SizeKB           uint64 `json:"sizeKB"`
	FreeKB           uint64 `json:"freeKB"`
	FreePct          int    `json:"freePct"`
	FreeFragmentsKB  uint64 `json:"freeFragmentsKB"`
	AvailableForData bool   `json:"availableForAlloc"`
}

func (c DiskCapacity) UsedKB() uint64 {
	if c.FreeKB > c.SizeKB {
		return 0
	}
	return c.SizeKB - c.FreeKB
}

// FilesystemCapacity sums the capacity of all disks in a filesystem.
type FilesystemCapacity struct {
	SizeKB uint64 `json:"sizeKB"`
	FreeKB uint64 `json:"freeKB"`
}

func SumCapacity(disks []DiskCapacity) FilesystemCapacity {
	var c FilesystemCapacity
	for _, d := range disks {
		c.SizeKB += d.SizeKB
		c.FreeKB += d.FreeKB
	}
	return c
}
