// Package panel supports estimation of spatial econometric models for
// panel (longitudinal) data.  Unit fixed effects are removed algebraically
// by demeaning, and the spatial autoregressive coefficient is estimated by
// maximizing a concentrated log-likelihood over a bounded interval.
package panel
