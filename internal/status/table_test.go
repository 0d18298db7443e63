package status_test

import (
	"os"
	"testing"

	"github.com/robalyx/apachemgr/internal/status"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readFixture(t *testing.T, name string) []byte {
	t.Helper()

	raw, err := os.ReadFile("testdata/" + name)
	require.NoError(t, err)

	return raw
}

func TestFindTableSkipsTablesWithoutRequiredColumns(t *testing.T) {
	t.Parallel()

	table, err := status.FindTable(readFixture(t, "status.html"), status.Columns)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"srv", "pid", "acc", "m", "cpu", "ss", "req", "dur", "conn", "child", "slot",
		"client", "protocol", "vhost", "request",
	}, table.Headings)
	require.Len(t, table.Rows, 4)
	assert.Equal(t, "0-0", table.Rows[0]["srv"])
	assert.Equal(t, "GET /server-status HTTP/1.1", table.Rows[0]["request"])
	assert.Equal(t, "W", table.Rows[1]["m"])
}

func TestFindTableNormalizesHeadings(t *testing.T) {
	t.Parallel()

	raw := []byte(`<table><tr><th> CPU Load </th><th>P.I.D.</th></tr><tr><td>1.5</td><td>42</td></tr></table>`)

	table, err := status.FindTable(raw, []string{"cpuload", "pid"})
	require.NoError(t, err)
	require.Len(t, table.Rows, 1)
	assert.Equal(t, "1.5", table.Rows[0]["cpuload"])
	assert.Equal(t, "42", table.Rows[0]["pid"])
}

func TestFindTableReturnsFirstQualifyingTable(t *testing.T) {
	t.Parallel()

	raw := []byte(`
<table><tr><th>PID</th><th>M</th></tr><tr><td>1</td><td>W</td></tr></table>
<table><tr><th>PID</th><th>M</th></tr><tr><td>2</td><td>_</td></tr><tr><td>3</td><td>_</td></tr></table>`)

	table, err := status.FindTable(raw, []string{"PID", "M"})
	require.NoError(t, err)
	require.Len(t, table.Rows, 1)
	assert.Equal(t, "1", table.Rows[0]["pid"])
}

func TestFindTableBindsCellsByPosition(t *testing.T) {
	t.Parallel()

	raw := []byte(`<table>
<tr><th>PID</th><th>M</th><th>Request</th></tr>
<tr><td>1</td><td>W</td><td>GET /</td><td>extra</td></tr>
<tr><td>2</td><td>_</td></tr>
</table>`)

	table, err := status.FindTable(raw, []string{"PID", "M"})
	require.NoError(t, err)
	require.Len(t, table.Rows, 2)

	assert.Equal(t, status.Row{"pid": "1", "m": "W", "request": "GET /"}, table.Rows[0])
	assert.Equal(t, status.Row{"pid": "2", "m": "_"}, table.Rows[1])
}

func TestFindTableJoinsWrappedCells(t *testing.T) {
	t.Parallel()

	raw := []byte("<table>\n<tr><th>PID</th><th>M</th><th>Request</th></tr>\n" +
		"<tr><td> 7 </td><td>W</td><td>GET\n   /reports/<b>annual</b>\n\tHTTP/1.1 </td></tr>\n</table>")

	table, err := status.FindTable(raw, []string{"PID", "M", "Request"})
	require.NoError(t, err)
	require.Len(t, table.Rows, 1)

	assert.Equal(t, "7", table.Rows[0]["pid"])
	assert.Equal(t, "GET /reports/annual HTTP/1.1", table.Rows[0]["request"])
}

func TestFindTableRequiresRowWithAllColumns(t *testing.T) {
	t.Parallel()

	raw := []byte(`<table>
<tr><th>Srv</th><td>Child Server number - generation</td></tr>
<tr><th>PID</th><td>OS process ID</td></tr>
</table>`)

	_, err := status.FindTable(raw, []string{"Srv", "PID"})
	require.Error(t, err)
	assert.ErrorIs(t, err, status.ErrStatusPage)

	var parseErr *status.ParseError
	require.ErrorAs(t, err, &parseErr)
	assert.Equal(t, 1, parseErr.Tables)
}

func TestFindTableFromPreformattedText(t *testing.T) {
	t.Parallel()

	raw := []byte("Server uptime: 3 days\n\n" +
		"Srv\tPID\tM\tRequest\n" +
		"0-0\t100\tW\tGET / HTTP/1.1\n" +
		"1-0  101  _  NULL\n")

	table, err := status.FindTable(raw, []string{"Srv", "PID", "M"})
	require.NoError(t, err)
	require.Len(t, table.Rows, 2)
	assert.Equal(t, "GET / HTTP/1.1", table.Rows[0]["request"])
	assert.Equal(t, "101", table.Rows[1]["pid"])
}

func TestExtractTablesIgnoresNestedRows(t *testing.T) {
	t.Parallel()

	raw := []byte(`<table><tr><th>A</th></tr><tr><td>outer</td></tr>
<tr><td><table><tr><th>B</th></tr><tr><td>inner</td></tr></table></td></tr></table>`)

	tables := status.ExtractTables(raw)
	require.Len(t, tables, 2)

	assert.Equal(t, []string{"a"}, tables[0].Headings)
	assert.Equal(t, "outer", tables[0].Rows[0]["a"])
	assert.Equal(t, []string{"b"}, tables[1].Headings)
	assert.Equal(t, []status.Row{{"b": "inner"}}, tables[1].Rows)
}
