// Package connectors provides the sources a pipeline run reads its inputs from.
// The filesystem connector watches a PDF directory and reports changes so a
// long-running process can re-run the pipeline when documents arrive.
package connectors
