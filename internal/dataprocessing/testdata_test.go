package dataprocessing

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"zomatoclean/internal/config"
	"zomatoclean/pkg/contracts/domain"
)

// sampleCSV has four rows: one fully null and one duplicating the first
const sampleCSV = `name,rate,approx_cost(for two people),cuisines,location,rest_type,dish_liked
onesta,4.1/5,800,"pizza, cafe", BTM ,casual dining,pasta
,,,,,,
onesta,4.1/5,800,"pizza, cafe", BTM ,casual dining,pasta
empire,NEW,"1,200",north indian,jayanagar,quick bites,
`

func sampleTable(t *testing.T) *domain.Table {
	t.Helper()
	table, err := ReadCSV(strings.NewReader(sampleCSV))
	require.NoError(t, err)
	return table
}

func floatColumn(name string, xs ...float64) *domain.Column {
	values := make([]domain.Value, len(xs))
	for i, x := range xs {
		values[i] = domain.FloatValue(x)
	}
	return domain.NewColumn(name, domain.KindFloat, values)
}

func stringColumn(name string, xs ...string) *domain.Column {
	values := make([]domain.Value, len(xs))
	for i, x := range xs {
		if x == "" {
			continue
		}
		values[i] = domain.StringValue(x)
	}
	return domain.NewColumn(name, domain.KindString, values)
}

func texts(c *domain.Column) []string {
	out := make([]string, c.Len())
	for i, v := range c.Values {
		out[i] = v.Text()
	}
	return out
}

func testConfig() *config.Config {
	return config.Default()
}
