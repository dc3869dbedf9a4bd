// Package domain models the geomagnetic vacuum sheet (GMVS) stress analysis:
// two independently sampled magnetometer feeds are aligned on a minute grid,
// scored against a baseline, and summarized into a ranked verdict.
//
// # Data Sources
//
// The SPACE feed is the DSCOVR L1 solar-wind magnetometer (NOAA SWPC
// "mag-7-day" product) harvested to CSV by an upstream fetcher. Columns used:
//
//	time_tag  "2024-05-10 17:03:00.000" (UTC, no zone designator)
//	bt        total field magnitude, nT
//	bx_gsm    planar X component, nT
//	by_gsm    planar Y component, nT
//
// The GROUND feed is a USGS geomagnetism observatory (BOU, FRD, CMO) at
// one-minute cadence. The fetcher strips the station prefix from the
// component names, so columns arrive as H, D, Z, F (or X, Y, Z, F depending
// on the station orientation) next to an ISO-8601 time_tag with a Z suffix.
//
// # Column Normalization
//
// Naming differs between feeds and between historical harvests (a merged
// export may carry "_space"/"_ground" suffixes). Loading resolves each feed's
// headers once into canonical fields so downstream code reads a fixed key:
//
//	SPACE:  bt <- bt, bt_space
//	        bx <- bx, bx_gsm, bx_gse, bx_space
//	        by <- by, by_gsm, by_gse, by_space
//	GROUND: total_field <- F, F_ground
//	        horizontal  <- H, H_ground, X, X_ground
//	        declination <- D, D_ground
//
// Unsuffixed names win over suffixed ones. A canonical field with no matching
// header is recorded in Series.MissingColumns and reads as a missing Value.
//
// # Missing Values
//
// Unparseable, empty, and non-finite cells load as a missing Value, never as
// zero. Scoring treats a missing magnitude as zero (so one bad cell cannot
// poison a rolling mean with NaN), but ScoredRow keeps the original Value so
// reports and state tables print the cell as missing rather than 0.
//
// # Stress Families
//
// RollingMean, FixedConstant and Median produce an unbounded ratio
// |value - baseline| / baseline. VectorMagnitude produces the saturating
// r / (1 + r^2), bounded in [0, 0.5]. The same 0.15 snap threshold therefore
// means very different sensitivities; RunConfig carries per-strategy
// threshold overrides instead of guessing a conversion.
package domain
