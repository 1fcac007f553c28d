/*Package summarize compares the results of a depth-saturation run (package
  subsample) against a full-depth oracle.  For each (depth, proportion,
  method, replication) group it reports significant-gene counts, coefficient
  agreement (Pearson, Spearman, Lin's concordance, MSE) and two
  false-discovery proxies: estFDP, the mean oracle local FDR among the
  group's significant genes, and rFDP, the fraction of them the oracle does
  not call significant.  Metrics are NA-aware throughout; a degenerate group
  yields NaN rather than an error.
*/
package summarize
