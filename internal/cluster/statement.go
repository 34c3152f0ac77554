package cluster

import (
	"bytes"
	"fmt"
	"strconv"
	"text/template"
)

// statementTemplate binds the job parameters as variables and executes the
// transformation code stored at CodePath in the session's interpreter.
var statementTemplate = template.Must(template.New("statement").Funcs(template.FuncMap{
	"py": strconv.Quote,
}).Parse(`dataset_name = {{ py .DatasetName }}
dataset_path = {{ py .DatasetPath }}
spark_config_path = {{ py .SparkConfigPath }}
final_code_path = {{ py .CodePath }}
_code = "\n".join(spark.sparkContext.textFile(final_code_path, 1).collect())
exec(compile(_code, final_code_path, "exec"))
`))

// RenderStatement renders the statement submitted for req.
func RenderStatement(req JobRequest) (string, error) {
	if req.CodePath == "" {
		return "", fmt.Errorf("job code path is required")
	}
	var buf bytes.Buffer
	if err := statementTemplate.Execute(&buf, req); err != nil {
		return "", fmt.Errorf("render statement: %w", err)
	}
	return buf.String(), nil
}
