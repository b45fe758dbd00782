package resolve

import (
	_ "embed"
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

//go:embed seeds.yaml
var embeddedSeeds []byte

// SeedCompany is a hand-curated, verified company with its known PAC name
// variants and stock ticker. Seed assignments always override the fuzzy
// clustering pass.
type SeedCompany struct {
	CanonicalName string   `yaml:"canonical_name"`
	DisplayName   string   `yaml:"display_name"`
	StockTicker   string   `yaml:"stock_ticker"`
	Variants      []string `yaml:"variants"`
}

type seedFile struct {
	Companies []SeedCompany `yaml:"companies"`
}

// DefaultSeeds returns the embedded verified-company seed list.
func DefaultSeeds() ([]SeedCompany, error) {
	return parseSeeds(embeddedSeeds)
}

// LoadSeeds reads a verified-company seed list from a YAML file, for
// deployments that maintain their own curated list.
func LoadSeeds(path string) ([]SeedCompany, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "resolve: read seed file %s", path)
	}
	return parseSeeds(data)
}

func parseSeeds(data []byte) ([]SeedCompany, error) {
	var f seedFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, eris.Wrap(err, "resolve: parse seed yaml")
	}

	for i, c := range f.Companies {
		if c.CanonicalName == "" {
			return nil, eris.Errorf("resolve: seed company %d has no canonical_name", i)
		}
	}
	return f.Companies, nil
}
