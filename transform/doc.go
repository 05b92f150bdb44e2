// Package transform provides handles to native vector transforms.
//
// A transform is usually handed to index.NewPreTransform, which takes
// ownership of it. Standalone use needs Close.
package transform
