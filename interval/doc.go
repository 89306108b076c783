/*Package interval implements interval-union operations over sets of genomic
  loci.  (Note the 'union'.  Overlapping intervals are merged, not tracked
  separately; use locus.Loci when each locus must stay distinct.)  It is used
  to cheaply decide whether an alignment can possibly matter before doing any
  per-locus work on it.
*/
package interval
