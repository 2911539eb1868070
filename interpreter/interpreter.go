package interpreter

import (
	"bufio"
	"io"
	"os"
	"strings"
	"time"

	"blazedb-go/catalog"
	"blazedb-go/config"
	"blazedb-go/operators"
	"blazedb-go/parser"
	"blazedb-go/planner"

	"github.com/cockroachdb/errors"
	"github.com/sirupsen/logrus"
)

var log = logrus.WithField("component", "interpreter")

// Execute runs the single query in queryFile against the database in dbDir
// and writes one line per result row to outputFile. On error whatever was
// already written stays in the output file.
func Execute(cfg *config.Config, dbDir, queryFile, outputFile string) error {
	cat, err := catalog.Load(dbDir, cfg)
	if err != nil {
		return err
	}
	sql, err := ReadQuery(queryFile)
	if err != nil {
		return err
	}
	out, err := os.Create(outputFile)
	if err != nil {
		return operators.WrapIO(err, "failed to create output file")
	}
	_, err = Run(cat, sql, out, cfg.Output.Separator, planner.WithHashJoin(cfg.Planner.HashJoin))
	return errors.CombineErrors(err, operators.WrapIO(out.Close(), "failed to close output file"))
}

// ReadQuery returns the first statement of the file, up to the first ';'.
func ReadQuery(path string) (string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", operators.WrapIO(err, "failed to read query file")
	}
	sql, _, _ := strings.Cut(string(raw), ";")
	sql = strings.TrimSpace(sql)
	if sql == "" {
		return "", operators.ErrUnsupported("query file " + path + " holds no statement")
	}
	return sql, nil
}

// Run parses and plans sql, then drains the plan into w, values joined by sep.
// It returns the number of rows written. The plan is closed exactly once.
func Run(cat *catalog.Catalog, sql string, w io.Writer, sep string, opts ...planner.Option) (rows int, err error) {
	start := time.Now()
	entry := log.WithField("query", sql)
	entry.Info("running query")

	stmt, err := parser.Parse(sql)
	if err != nil {
		return 0, err
	}
	root, err := planner.Plan(stmt, cat, opts...)
	if err != nil {
		return 0, err
	}
	defer func() {
		err = errors.CombineErrors(err, root.Close())
	}()

	sink := bufio.NewWriter(w)
	rows, err = operators.ForEach(root, func(t operators.Tuple) error {
		if _, err := sink.WriteString(t.Format(sep)); err != nil {
			return operators.WrapIO(err, "failed to write results")
		}
		return operators.WrapIO(sink.WriteByte('\n'), "failed to write results")
	})
	// keep what was produced before a failure
	if flushErr := sink.Flush(); flushErr != nil {
		err = errors.CombineErrors(err, operators.WrapIO(flushErr, "failed to write results"))
	}
	if err != nil {
		return rows, err
	}
	entry.WithFields(logrus.Fields{"rows": rows, "elapsed": time.Since(start)}).Info("query finished")
	return rows, nil
}
