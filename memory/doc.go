// Package memory implements a small semantic retrieval index.
//
// A VectorStore keeps documents together with their embedding vectors and
// answers top-k cosine similarity queries. Vectors come from a pluggable
// Embedder: OpenAIEmbedder calls the OpenAI embeddings endpoint, while
// HashEmbedder produces deterministic bag-of-words vectors offline, which is
// useful for tests and air-gapped demos.
//
// A store created with a Path persists itself as JSON after each build and
// reloads on construction, so a knowledge base survives process restarts.
package memory
