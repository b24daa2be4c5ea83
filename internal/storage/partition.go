package storage

import (
	"fmt"

	"github.com/gmendonca/nfe-pipeline/internal/normalize"
)

// hiveDefaultPartition is the directory name hive-style writers use for
// rows whose partition key is null.
const hiveDefaultPartition = "__HIVE_DEFAULT_PARTITION__"

var hiveDefaultDir = fmt.Sprintf("year=%s/month=%s", hiveDefaultPartition, hiveDefaultPartition)

// PartitionDir returns the relative directory for a (year, month)
// partition, e.g. "year=2024/month=6".
func PartitionDir(p normalize.Partition) string {
	return fmt.Sprintf("year=%d/month=%d", p.Year, p.Month)
}

// partitionGroup pairs a partition directory with the rows that belong in
// it.
type partitionGroup struct {
	dir  string
	rows []normalize.Row
}

// groupRows splits the table's rows into hive-style partition directories,
// preserving row order within each group. Rows without partition keys go to
// the hive default partition.
func groupRows(table *normalize.Table) []partitionGroup {
	index := make(map[string]int)
	var groups []partitionGroup
	for _, row := range table.Rows() {
		dir := hiveDefaultDir
		if row.Year != nil && row.Month != nil {
			dir = PartitionDir(normalize.Partition{Year: *row.Year, Month: *row.Month})
		}
		i, ok := index[dir]
		if !ok {
			i = len(groups)
			index[dir] = i
			groups = append(groups, partitionGroup{dir: dir})
		}
		groups[i].rows = append(groups[i].rows, row)
	}
	return groups
}
