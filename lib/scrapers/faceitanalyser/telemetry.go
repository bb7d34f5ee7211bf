package faceitanalyser

import "statcard-backend/lib/telemetry"

var tracer = telemetry.Tracer("statcard.lib.scrapers.faceitanalyser")
