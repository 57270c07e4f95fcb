// Package domain models the Spanish regional COVID-19 cumulative case series.
//
// # Data Source
//
// The Instituto de Salud Carlos III publishes a daily CSV of cumulative counts per
// comunidad autónoma (CCAA) at
// https://covid19.isciii.es/resources/serie_historica_acumulados.csv. The file is
// ISO-8859-1 encoded and carries "*" footnote markers inside numeric cells and
// free-text notes after the data rows. The feed adapter re-encodes it to UTF-8
// and strips the markers before this package sees it.
//
// # Column Contract
//
// Header text changes with upstream wording and locale, so columns are resolved
// by position after unlabeled placeholder columns (trailing commas) are removed:
//
//	0  CCAA code (ISO 3166-2:ES without "ES-", e.g. "AN")
//	1  date, D/M/YYYY
//	2  confirmed cases (cumulative)
//	3  PCR-confirmed cases
//	4  antibody-test-confirmed cases
//	5  hospitalized
//	6  ICU admissions
//	7  deaths
//	8  recovered
//
// A header with fewer than nine named columns is an [ErrSchema].
//
// # Repairs
//
// Numeric cells that are empty or unparseable become 0. Rows whose date does not
// parse (including the footer notes) are dropped. Rows are stably sorted by date.
// Repairs are counted in [BuildStats], never returned as errors.
//
// # Reconciliation
//
// For some regions and periods confirmed cases appear only in the PCR column.
// [ReplaceIfZero] copies PCR into confirmed where confirmed is exactly zero;
// [AddAlways] reproduces an older variant that adds PCR on every row. Active
// cases are confirmed minus deaths minus recovered, computed after reconciliation.
//
// # Aggregation
//
// [Summarize] re-sums regional tables by row position. Regions must therefore
// report exactly the same dates; a misaligned region is an [ErrConsistency].
package domain
