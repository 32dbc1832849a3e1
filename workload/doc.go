// Package workload runs synthetic mapping jobs through the parallel and
// async pools and reports what it observed. It backs the loopbench command
// and doubles as an end-to-end check of both pool variants.
package workload
