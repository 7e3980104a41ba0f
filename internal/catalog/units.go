package catalog

// Unit tags. Descriptive only; no conversion is performed.
const (
	UnitPercentage   = "%"
	UnitCelsius      = "°C"
	UnitKiloWattHour = "kWh"
	UnitKiloWatt     = "kW"
	UnitWatt         = "W"
	UnitVolt         = "V"
	UnitAmpere       = "A"
	UnitHertz        = "Hz"
	UnitHour         = "h"
	UnitMinute       = "min"
	UnitVoltAmpere   = "VA"
	UnitVar          = "var"
	UnitKiloVar      = "kvar"
	UnitKiloOhm      = "kΩ"
)
