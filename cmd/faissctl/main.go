// Command faissctl builds FAISS index pipelines from a configuration file and
// exercises them on fvecs datasets.
//
// Usage:
//
//	faissctl check
//	faissctl generate --n 10000 --dim 64 --out base.fvecs.zst
//	faissctl search --base base.fvecs.zst --query query.fvecs -k 10
//	faissctl inspect --config faissctl.yaml
//
// Datasets may be local paths or s3://bucket/key URIs.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
