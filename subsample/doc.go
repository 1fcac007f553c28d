/*Package subsample implements seeded binomial thinning of gene-level read
  count matrices, and runs pluggable differential-expression analysis methods
  against each thinned matrix.  Every random draw is a pure function of
  (seed, proportion, replication), so a run can be re-executed, extended with
  new proportions, or partially regenerated for inspection without perturbing
  any previously computed matrix.  Results accumulate in a long-format Store,
  one row per gene x depth x replication x method, which package summarize
  consumes to compare each depth against a full-depth oracle.
*/
package subsample
