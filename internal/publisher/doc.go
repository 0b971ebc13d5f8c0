// Package publisher holds the publish targets the consumption cycle can
// hand items to, plus the shared post formatting. Each target implements
// queue.Publisher and classifies every attempt as Published, Skipped
// (terminal drop) or Failed (retriable).
package publisher
