// Package queue provides a small persistent FIFO of pending tasks.
//
// The queue is stored as an indented JSON array on disk and rewritten after
// every mutation, so a process can enqueue work now and a later invocation
// (or a scheduled job) can drain it. A missing or unreadable file starts an
// empty queue.
package queue
