// Package rag provides the retrieval half of document Q&A: a deterministic
// hash embedding, a fixed-size chunker, an in-memory cosine index, and a
// per-document Session that ties them together.
//
// The embedding is lexical only. Embedder exists so a learned model can be
// substituted without touching Index or Session.
package rag
