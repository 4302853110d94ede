// Package anygym defines a gym-style interface for
// reinforcement learning environments, along with
// wrappers and adapters for those environments.
//
// Batched environments live in the anybatch package, and
// spaces live in the anyspace package.
package anygym
