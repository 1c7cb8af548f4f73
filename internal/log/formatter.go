package log

import (
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"
)

// formatter renders entries through a pattern supporting %time, %level,
// %field, %msg, %caller and %func.
type formatter struct {
	pattern string
	time    string
}

func (f *formatter) Format(entry *logrus.Entry) ([]byte, error) {
	r := strings.NewReplacer(
		"%time", entry.Time.Format(f.time),
		"%level", entry.Level.String(),
		"%field", buildFields(entry),
		"%msg", entry.Message,
		"%caller", getCaller(entry),
		"%func", getFunc(entry),
	)
	return []byte(r.Replace(f.pattern)), nil
}

// getCaller returns package/file.go:line, or "-" when caller reporting is off.
func getCaller(entry *logrus.Entry) string {
	if !entry.HasCaller() {
		return "-"
	}
	file := path.Base(entry.Caller.File)
	pkg := ""
	if fn := entry.Caller.Function; fn != "" {
		// firestige.xyz/arpreflect/internal/core/decoder.(*Classifier).Inspect
		pkg = path.Base(fn)
		if i := strings.Index(pkg, "."); i >= 0 {
			pkg = pkg[:i]
		}
	}
	return fmt.Sprintf("%s/%s:%d", pkg, file, entry.Caller.Line)
}

func getFunc(entry *logrus.Entry) string {
	if !entry.HasCaller() {
		return "-"
	}
	funcName := entry.Caller.Function
	if i := strings.LastIndex(funcName, "."); i != -1 && i+1 < len(funcName) {
		return funcName[i+1:]
	}
	return funcName
}

// buildFields renders entry data as sorted key=value pairs.
func buildFields(entry *logrus.Entry) string {
	keys := make([]string, 0, len(entry.Data))
	for k := range entry.Data {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	fields := make([]string, 0, len(keys))
	for _, k := range keys {
		val := entry.Data[k]
		stringVal, ok := val.(string)
		if !ok {
			stringVal = fmt.Sprint(val)
		}
		fields = append(fields, k+"="+stringVal)
	}
	return strings.Join(fields, ",")
}
