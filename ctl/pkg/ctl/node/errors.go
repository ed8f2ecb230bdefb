package node

import "errors"

var (
	ErrNoIdentifiers        = errors.New("no node identifiers specified")
	ErrClusterUnhealthy     = errors.New("cluster is not healthy")
	ErrProtectedRole        = errors.New("node holds a role that prevents removal")
	ErrDiskUnhealthy        = errors.New("one or more disks are not available")
	ErrNoRemainingCapacity  = errors.New("no free disks available to restripe data")
	ErrInsufficientCapacity = errors.New("not enough space left for restriping data")
	ErrCapacityUnknown      = errors.New("no capacity information for disk")
	ErrShutdownTimeout      = errors.New("timed out waiting for nodes to shut down")
	ErrStartupTimeout       = errors.New("timed out waiting for nodes to become active")
	ErrDetachTimeout        = errors.New("timed out waiting for NSD server changes to propagate")
	ErrNodesFailed          = errors.New("one or more nodes could not be processed")
)
