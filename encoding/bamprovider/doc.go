// Package bamprovider implements the reads-provider: it answers "which
// alignment records touch this locus?" for one alignment source.
//
// Provider is the interface.  BAMProvider answers queries from a BAM file and
// its .bai index; SAMProvider scans a SAM (optionally gzipped) file once and
// keeps the relevant records in memory.
package bamprovider
