package mmcmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const mmlsclusterOutput = `mmlscluster:clusterSummary:HEADER:version:reserved:reserved:clusterName:clusterId:uidDomain:rshPath:rshSudoWrapper:rcpPath:rcpSudoWrapper:repositoryType:primaryServer:secondaryServer:
mmlscluster:clusterSummary:0:1:::gpfs1.example.com:1234567890:example.com:/usr/bin/ssh:no:/usr/bin/scp:no:CCR:::
mmlscluster:clusterNode:HEADER:version:reserved:reserved:nodeNumber:daemonNodeName:ipAddress:adminNodeName:designation:otherNodeRoles:adminLoginName:otherNodeRolesAlias:
mmlscluster:clusterNode:0:1:::1:node1.example.com:10.0.0.1:node1:quorumManager:perfmon%3Aextra::Z:
mmlscluster:clusterNode:0:1:::2:node2.example.com:10.0.0.2:node2:::::
short:line
`

func TestParseAggregate(t *testing.T) {
	table := Parse(mmlsclusterOutput)
	assert.Equal(t, []string{"clusterSummary", "clusterNode"}, table.Datatypes())

	summary, ok := table.Summary("clusterSummary")
	require.True(t, ok)
	assert.Equal(t, "gpfs1.example.com", summary.Get("clusterName"))
	assert.Equal(t, "CCR", summary.Get("repositoryType"))
	_, hasReserved := summary["reserved"]
	assert.False(t, hasReserved)

	nodes := table.Rows("clusterNode")
	require.Len(t, nodes, 2)
	assert.Equal(t, 1, nodes[0].Int("nodeNumber"))
	assert.Equal(t, "quorumManager", nodes[0].Get("designation"))
	assert.Equal(t, "perfmon:extra", nodes[0].Get("otherNodeRoles"), "values are URL decoded")
	assert.Equal(t, "", nodes[1].Get("designation"))

	_, ok = table.Summary("cesSummary")
	assert.False(t, ok)
}

func TestParseUnique(t *testing.T) {
	output := `mmgetstate::HEADER:version:reserved:reserved:nodeName:nodeNumber:state:quorum:nodesUp:totalNodes:remarks:cnfsState:
mmgetstate::0:1:::node1:1:active:1:2:2:quorum node:(undefined):
mmgetstate::0:1:::node2:2:down:1:2:2::(undefined):
`
	table := Parse(output)
	rows := table.Rows("mmgetstate")
	require.Len(t, rows, 2)
	assert.Equal(t, "node2", rows[1].Get("nodeName"))
	assert.Equal(t, "down", rows[1].Get("state"))
	assert.Equal(t, "quorum node", rows[0].Get("remarks"))
}

func TestParseKeyed(t *testing.T) {
	output := `mmlsfs::HEADER:version:reserved:reserved:deviceName:fieldName:data:remarks:
mmlsfs::0:1:::fs1:minFragmentSize:8192:Minimum fragment (subblock) size in bytes:
mmlsfs::0:1:::fs1:blockSize:4194304:Block size (system pool):
mmlsfs::0:1:::fs2:blockSize:1048576::
mmlsfs::0:1:::fs1:defaultMountPoint:%2Fgpfs%2Ffs1::
`
	groups := Parse(output).GroupBy("deviceName")
	require.Len(t, groups, 2)
	assert.Equal(t, "fs1", groups[0].Key)
	assert.Len(t, groups[0].Rows, 3)
	assert.Equal(t, "/gpfs/fs1", groups[0].Rows[2].Get("data"))
	assert.Equal(t, "fs2", groups[1].Key)
	assert.Len(t, groups[1].Rows, 1)
}

func TestParseIgnoresRowsWithoutHeader(t *testing.T) {
	table := Parse("mmdf:nsd:0:1:::nsd1:system:1000:\n")
	assert.Empty(t, table.Datatypes())
	assert.Empty(t, table.AllRows())
	assert.Empty(t, Parse("").AllRows())
}

func TestRecordConversions(t *testing.T) {
	r := Record{"size": "1024", "bad": "abc", "flag": "Yes", "neg": "-3"}
	assert.Equal(t, uint64(1024), r.Uint("size"))
	assert.Equal(t, uint64(0), r.Uint("bad"))
	assert.Equal(t, uint64(0), r.Uint("missing"))
	assert.Equal(t, -3, r.Int("neg"))
	assert.True(t, r.Bool("flag"))
	assert.False(t, r.Bool("size"))
}
