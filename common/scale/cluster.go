package scale

import (
	"fmt"
	"strings"
)

type ClusterSummary struct {
	Name            string `json:"clusterName"`
	ID              string `json:"clusterId"`
	UIDDomain       string `json:"uidDomain"`
	RshPath         string `json:"rshPath"`
	RshSudoWrapper  string `json:"rshSudoWrapper"`
	RcpPath         string `json:"rcpPath"`
	RcpSudoWrapper  string `json:"rcpSudoWrapper"`
	RepositoryType  string `json:"repositoryType"`
	PrimaryServer   string `json:"primaryServer"`
	SecondaryServer string `json:"secondaryServer"`
}

type Cluster struct {
	Summary ClusterSummary `json:"summary"`
	Nodes   []ClusterNode  `json:"nodes"`
}

// License is the GPFS license designation applied to a node with mmchlicense.
type License string

const (
	ServerLicense License = "server"
	ClientLicense License = "client"
	FPOLicense    License = "fpo"
)

var validLicenses = []License{ServerLicense, ClientLicense, FPOLicense}

func LicenseFromString(s string) (License, error) {
	l := License(strings.ToLower(strings.TrimSpace(s)))
	for _, valid := range validLicenses {
		if l == valid {
			return l, nil
		}
	}
	return "", fmt.Errorf("invalid license %q (valid licenses: server, client, fpo)", s)
}

func (l License) String() string {
	return string(l)
}

// Set and Type implement pflag.Value so licenses can be used directly as a command line flag.
func (l *License) Set(s string) error {
	parsed, err := LicenseFromString(s)
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}

func (l *License) Type() string {
	return "license"
}
