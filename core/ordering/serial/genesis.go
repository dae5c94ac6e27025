package serial

import (
	"os"

	"go.dedis.ch/ballot/core/access"
	"golang.org/x/xerrors"
	"gopkg.in/yaml.v2"
)

// Genesis is the configuration of the first block of the chain.
type Genesis struct {
	// Owner is the address of the administrator of the contracts.
	Owner access.Address `yaml:"owner"`

	// Timestamp is the time of the genesis block in seconds since the Unix
	// epoch. The current time is used when it is zero.
	Timestamp uint64 `yaml:"timestamp"`
}

// LoadGenesis reads the YAML genesis file at the given path.
func LoadGenesis(path string) (Genesis, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Genesis{}, xerrors.Errorf("failed to read genesis: %v", err)
	}

	return ParseGenesis(data)
}

// ParseGenesis parses a YAML genesis and validates the owner address.
func ParseGenesis(data []byte) (Genesis, error) {
	var raw struct {
		Owner     string `yaml:"owner"`
		Timestamp uint64 `yaml:"timestamp"`
	}

	err := yaml.UnmarshalStrict(data, &raw)
	if err != nil {
		return Genesis{}, xerrors.Errorf("malformed genesis: %v", err)
	}

	owner, err := access.ParseAddress(raw.Owner)
	if err != nil {
		return Genesis{}, xerrors.Errorf("invalid owner: %v", err)
	}

	genesis := Genesis{
		Owner:     owner,
		Timestamp: raw.Timestamp,
	}

	return genesis, nil
}

// Marshal returns the YAML representation of the genesis.
func (g Genesis) Marshal() ([]byte, error) {
	raw := struct {
		Owner     string `yaml:"owner"`
		Timestamp uint64 `yaml:"timestamp,omitempty"`
	}{
		Owner:     string(g.Owner),
		Timestamp: g.Timestamp,
	}

	data, err := yaml.Marshal(raw)
	if err != nil {
		return nil, xerrors.Errorf("failed to marshal: %v", err)
	}

	return data, nil
}
