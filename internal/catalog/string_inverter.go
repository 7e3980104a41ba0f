package catalog

import (
	"errors"
	"sync"

	"github.com/umthana/SungrowInverter/internal/types"
)

// Sungrow grid-connected string inverter series (SG..RT, SG..KTL-M, SG..CX,
// SG..HX and relatives). Addresses below are the documented register numbers.

const (
	enableNote = "0xAA enable, 0x55 disable"
	faultNote  = "Valid only while the work state is fault or alarm"
)

// Inverters that expose the export meter block (5083-5104).
var meterModels = []types.ModelID{
	0x013C, 0x013E, 0x013F, 0x0142, 0x0143, 0x0147, 0x0148, 0x0149, 0x2C0F,
}

// Inverters that report total power yields at 5144.
var yieldModels = []types.ModelID{
	0x0139, 0x013B, 0x013C, 0x013E, 0x013F, 0x0142, 0x0143, 0x0147, 0x0148, 0x0149, 0x014C,
	0x2430, 0x2431, 0x2432, 0x2433, 0x2434, 0x2435, 0x2436, 0x2437, 0x243C, 0x243D, 0x243E,
	0x2600, 0x2601, 0x2602, 0x2603, 0x2604, 0x2605, 0x2606, 0x2607,
	0x2C00, 0x2C01, 0x2C02, 0x2C03, 0x2C06, 0x2C0A, 0x2C0B,
	0x2C0C, 0x2C0F, 0x2C10, 0x2C11, 0x2C12, 0x2C13, 0x2C15, 0x2C22,
}

// Scan ranges in wire offsets. The vendor ranges stopped at 5161 for the
// input block and at 5004 for the holding block; the extra ranges cover
// MPPT 13-16, the string currents and the rest of the holding list.
var stringScanRanges = map[types.RegisterClass][]types.ScanRange{
	types.RegisterClassRead: {
		{Start: 4999, Count: 110},
		{Start: 5112, Count: 50},
		{Start: 5185, Count: 8},
		{Start: 7012, Count: 32},
	},
	types.RegisterClassHolding: {
		{Start: 4999, Count: 49},
		{Start: 5077, Count: 1},
		{Start: 5115, Count: 20},
		{Start: 32568, Count: 2},
	},
}

func stringReadSpecs() []RegisterSpec {
	return []RegisterSpec{
		spec(5002, "output_type", types.DataTypeU16, table(outputTypeCodes)),
		spec(5003, "daily_energy_yield", types.DataTypeU16, scaled(0.1), unit(UnitKiloWattHour)),
		spec(5004, "total_energy_yield", types.DataTypeU32, unit(UnitKiloWattHour)),
		spec(5006, "total_running_time", types.DataTypeU32, unit(UnitHour)),
		spec(5008, "inside_temperature", types.DataTypeU16, scaled(0.1), unit(UnitCelsius), describe("Internal inverter temperature")),
		spec(5009, "total_aparent_power", types.DataTypeU32, unit(UnitVoltAmpere)),
		spec(5011, "mppt_1_voltage", types.DataTypeU16, scaled(0.1), unit(UnitVolt)),
		spec(5012, "mppt_1_current", types.DataTypeU16, scaled(0.1), unit(UnitAmpere)),
		spec(5013, "mppt_2_voltage", types.DataTypeU16, scaled(0.1), unit(UnitVolt)),
		spec(5014, "mppt_2_current", types.DataTypeU16, scaled(0.1), unit(UnitAmpere)),
		spec(5015, "mppt_3_voltage", types.DataTypeU16, scaled(0.1), unit(UnitVolt)),
		spec(5016, "mppt_3_current", types.DataTypeU16, scaled(0.1), unit(UnitAmpere)),
		spec(5017, "total_dc_power", types.DataTypeU32, unit(UnitWatt), describe("PV power usable after inverter losses")),
		spec(5019, "grid_voltage", types.DataTypeU16, scaled(0.1), unit(UnitVolt), describe("Grid voltage, single phase inverters")),
		spec(5019, "phase_a_voltage", types.DataTypeU16, scaled(0.1), unit(UnitVolt), describe("Phase A (1-2) voltage; the grid voltage on a single phase inverter")),
		spec(5020, "phase_b_voltage", types.DataTypeU16, scaled(0.1), unit(UnitVolt)),
		spec(5021, "phase_c_voltage", types.DataTypeU16, scaled(0.1), unit(UnitVolt)),
		spec(5022, "phase_a_current", types.DataTypeU16, scaled(0.1), unit(UnitAmpere)),
		spec(5023, "phase_b_current", types.DataTypeU16, scaled(0.1), unit(UnitAmpere)),
		spec(5024, "phase_c_current", types.DataTypeU16, scaled(0.1), unit(UnitAmpere)),
		spec(5031, "total_active_power", types.DataTypeU32, unit(UnitWatt)),
		spec(5033, "reactive_power", types.DataTypeS32, unit(UnitVar)),
		spec(5035, "power_factor", types.DataTypeS16, scaled(0.001)),
		spec(5036, "grid_frequency", types.DataTypeU16, scaled(0.1), unit(UnitHertz)),
		spec(5038, "device_state", types.DataTypeU16, table(deviceWorkStateCodes)),
		spec(5039, "fault/alarm_year", types.DataTypeU16, describe(faultNote)),
		spec(5040, "fault/alarm_month", types.DataTypeU16, describe(faultNote)),
		spec(5041, "fault/alarm_day", types.DataTypeU16, describe(faultNote)),
		spec(5042, "fault/alarm_hour", types.DataTypeU16, describe(faultNote)),
		spec(5043, "fault/alarm_minute", types.DataTypeU16, describe(faultNote)),
		spec(5044, "fault/alarm_second", types.DataTypeU16, describe(faultNote)),
		spec(5045, "fault/alarm_code", types.DataTypeU16, describe(faultNote)),
		spec(5049, "nominal_reactive_power", types.DataTypeU16, scaled(0.1), unit(UnitKiloVar)),
		spec(5071, "array_insulation_resistance", types.DataTypeU16, unit(UnitKiloOhm)),
		spec(5077, "active_power_regulation_setpoint", types.DataTypeU32, unit(UnitWatt)),
		spec(5079, "reactive_power_regulation_setpoint", types.DataTypeU32, unit(UnitVar)),
		spec(5081, "work_state", types.DataTypeBinary, bits(workStateBits), table(workStateFlags), describe("Work state flags, appendix 2 of the vendor reference")),
		spec(5083, "meter_power", types.DataTypeS32, unit(UnitWatt), models(meterModels...)),
		spec(5085, "meter_a_phase_power", types.DataTypeS32, unit(UnitWatt), models(meterModels...)),
		spec(5087, "meter_b_phase_power", types.DataTypeS32, unit(UnitWatt), models(meterModels...)),
		spec(5089, "meter_c_phase_power", types.DataTypeS32, unit(UnitWatt), models(meterModels...)),
		spec(5091, "load_power", types.DataTypeS32, unit(UnitWatt), models(meterModels...)),
		spec(5093, "daily_export_energy", types.DataTypeU32, scaled(0.1), unit(UnitKiloWattHour), models(meterModels...)),
		spec(5095, "total_export_energy", types.DataTypeU32, scaled(0.1), unit(UnitKiloWattHour), models(meterModels...)),
		spec(5097, "daily_import_energy", types.DataTypeU32, scaled(0.1), unit(UnitKiloWattHour), models(meterModels...)),
		spec(5099, "total_import_energy", types.DataTypeU32, scaled(0.1), unit(UnitKiloWattHour), models(meterModels...)),
		spec(5101, "daily_direct_energy_consumption", types.DataTypeU32, scaled(0.1), unit(UnitKiloWattHour), models(meterModels...)),
		spec(5103, "total_direct_energy_consumption", types.DataTypeU32, scaled(0.1), unit(UnitKiloWattHour), models(meterModels...)),
		spec(5113, "daily_running_time", types.DataTypeU16, unit(UnitMinute)),
		spec(5114, "present_country", types.DataTypeU16, table(countryCodes)),
		spec(5115, "mppt_4_voltage", types.DataTypeU16, scaled(0.1), unit(UnitVolt)),
		spec(5116, "mppt_4_current", types.DataTypeU16, scaled(0.1), unit(UnitAmpere)),
		spec(5117, "mppt_5_voltage", types.DataTypeU16, scaled(0.1), unit(UnitVolt)),
		spec(5118, "mppt_5_current", types.DataTypeU16, scaled(0.1), unit(UnitAmpere)),
		spec(5119, "mppt_6_voltage", types.DataTypeU16, scaled(0.1), unit(UnitVolt)),
		spec(5120, "mppt_6_current", types.DataTypeU16, scaled(0.1), unit(UnitAmpere)),
		spec(5121, "mppt_7_voltage", types.DataTypeU16, scaled(0.1), unit(UnitVolt)),
		spec(5122, "mppt_7_current", types.DataTypeU16, scaled(0.1), unit(UnitAmpere)),
		spec(5123, "mppt_8_voltage", types.DataTypeU16, scaled(0.1), unit(UnitVolt)),
		spec(5124, "mppt_8_current", types.DataTypeU16, scaled(0.1), unit(UnitAmpere)),
		spec(5128, "monthly_power_yields", types.DataTypeU32, scaled(0.1), unit(UnitKiloWattHour)),
		spec(5130, "mppt_9_voltage", types.DataTypeU16, scaled(0.1), unit(UnitVolt)),
		spec(5131, "mppt_9_current", types.DataTypeU16, scaled(0.1), unit(UnitAmpere)),
		spec(5132, "mppt_10_voltage", types.DataTypeU16, scaled(0.1), unit(UnitVolt)),
		spec(5133, "mppt_10_current", types.DataTypeU16, scaled(0.1), unit(UnitAmpere)),
		spec(5134, "mppt_11_voltage", types.DataTypeU16, scaled(0.1), unit(UnitVolt)),
		spec(5135, "mppt_11_current", types.DataTypeU16, scaled(0.1), unit(UnitAmpere)),
		spec(5136, "mppt_12_voltage", types.DataTypeU16, scaled(0.1), unit(UnitVolt)),
		spec(5137, "mppt_12_current", types.DataTypeU16, scaled(0.1), unit(UnitAmpere)),
		spec(5140, "work_status_1", types.DataTypeU16),
		spec(5141, "work_status_2", types.DataTypeU16),
		spec(5143, "heart_beat", types.DataTypeU16),
		spec(5144, "total_power_yields", types.DataTypeU32, scaled(0.1), unit(UnitKiloWattHour), models(yieldModels...)),
		spec(5146, "negative_voltage_to_the_ground", types.DataTypeS16, scaled(0.1), unit(UnitVolt)),
		spec(5147, "bus_voltage", types.DataTypeU16, scaled(0.1), unit(UnitVolt)),
		spec(5148, "grid_frequency_5148", types.DataTypeU16, scaled(0.01), unit(UnitHertz), describe("Grid frequency, 0.01 Hz resolution")),
		spec(5150, "PID_work_state", types.DataTypeU16, table(pidWorkStateCodes)),
		spec(5151, "PID_alarm_code", types.DataTypeU16, table(pidAlarmCodes)),
		spec(5186, "mppt_13_voltage", types.DataTypeU16, scaled(0.1), unit(UnitVolt)),
		spec(5187, "mppt_13_current", types.DataTypeU16, scaled(0.1), unit(UnitAmpere)),
		spec(5188, "mppt_14_voltage", types.DataTypeU16, scaled(0.1), unit(UnitVolt)),
		spec(5189, "mppt_14_current", types.DataTypeU16, scaled(0.1), unit(UnitAmpere)),
		spec(5190, "mppt_15_voltage", types.DataTypeU16, scaled(0.1), unit(UnitVolt)),
		spec(5191, "mppt_15_current", types.DataTypeU16, scaled(0.1), unit(UnitAmpere)),
		spec(5192, "mppt_16_voltage", types.DataTypeU16, scaled(0.1), unit(UnitVolt)),
		spec(5193, "mppt_16_current", types.DataTypeU16, scaled(0.1), unit(UnitAmpere)),
		spec(7013, "string_1_current", types.DataTypeU16, scaled(0.01), unit(UnitAmpere)),
		spec(7014, "string_2_current", types.DataTypeU16, scaled(0.01), unit(UnitAmpere)),
		spec(7015, "string_3_current", types.DataTypeU16, scaled(0.01), unit(UnitAmpere)),
		spec(7016, "string_4_current", types.DataTypeU16, scaled(0.01), unit(UnitAmpere)),
		spec(7017, "string_5_current", types.DataTypeU16, scaled(0.01), unit(UnitAmpere)),
		spec(7018, "string_6_current", types.DataTypeU16, scaled(0.01), unit(UnitAmpere)),
		spec(7019, "string_7_current", types.DataTypeU16, scaled(0.01), unit(UnitAmpere)),
		spec(7020, "string_8_current", types.DataTypeU16, scaled(0.01), unit(UnitAmpere)),
		spec(7021, "string_9_current", types.DataTypeU16, scaled(0.01), unit(UnitAmpere)),
		spec(7022, "string_10_current", types.DataTypeU16, scaled(0.01), unit(UnitAmpere)),
		spec(7023, "string_11_current", types.DataTypeU16, scaled(0.01), unit(UnitAmpere)),
		spec(7024, "string_12_current", types.DataTypeU16, scaled(0.01), unit(UnitAmpere)),
		spec(7025, "string_13_current", types.DataTypeU16, scaled(0.01), unit(UnitAmpere)),
		spec(7026, "string_14_current", types.DataTypeU16, scaled(0.01), unit(UnitAmpere)),
		spec(7027, "string_15_current", types.DataTypeU16, scaled(0.01), unit(UnitAmpere)),
		spec(7028, "string_16_current", types.DataTypeU16, scaled(0.01), unit(UnitAmpere)),
		spec(7029, "string_17_current", types.DataTypeU16, scaled(0.01), unit(UnitAmpere)),
		spec(7030, "string_18_current", types.DataTypeU16, scaled(0.01), unit(UnitAmpere)),
		spec(7031, "string_19_current", types.DataTypeU16, scaled(0.01), unit(UnitAmpere)),
		spec(7032, "string_20_current", types.DataTypeU16, scaled(0.01), unit(UnitAmpere)),
		spec(7033, "string_21_current", types.DataTypeU16, scaled(0.01), unit(UnitAmpere)),
		spec(7034, "string_22_current", types.DataTypeU16, scaled(0.01), unit(UnitAmpere)),
		spec(7035, "string_23_current", types.DataTypeU16, scaled(0.01), unit(UnitAmpere)),
		spec(7036, "string_24_current", types.DataTypeU16, scaled(0.01), unit(UnitAmpere)),
		spec(7037, "string_25_current", types.DataTypeU16, scaled(0.01), unit(UnitAmpere)),
		spec(7038, "string_26_current", types.DataTypeU16, scaled(0.01), unit(UnitAmpere)),
		spec(7039, "string_27_current", types.DataTypeU16, scaled(0.01), unit(UnitAmpere)),
		spec(7040, "string_28_current", types.DataTypeU16, scaled(0.01), unit(UnitAmpere)),
		spec(7041, "string_29_current", types.DataTypeU16, scaled(0.01), unit(UnitAmpere)),
		spec(7042, "string_30_current", types.DataTypeU16, scaled(0.01), unit(UnitAmpere)),
		spec(7043, "string_31_current", types.DataTypeU16, scaled(0.01), unit(UnitAmpere)),
		spec(7044, "string_32_current", types.DataTypeU16, scaled(0.01), unit(UnitAmpere))}
}

func stringHoldingSpecs() []RegisterSpec {
	return []RegisterSpec{
		spec(5000, "year", types.DataTypeU16),
		spec(5001, "month", types.DataTypeU16),
		spec(5002, "day", types.DataTypeU16),
		spec(5003, "hour", types.DataTypeU16),
		spec(5004, "minute", types.DataTypeU16),
		spec(5005, "second", types.DataTypeU16),
		spec(5006, "start/stop", types.DataTypeU16, describe("0xCF start, 0xCE stop")),
		spec(5007, "power_limitation_switch", types.DataTypeU16, describe(enableNote)),
		spec(5008, "power_limitation_setting", types.DataTypeU16, scaled(0.1), unit(UnitPercentage)),
		spec(5010, "export_power_limitation", types.DataTypeU16, describe(enableNote)),
		spec(5011, "export_power_limitation_value", types.DataTypeU16),
		spec(5012, "current_transformer_output_current", types.DataTypeU16, unit(UnitAmpere)),
		spec(5013, "current_transformer_range", types.DataTypeU16, unit(UnitAmpere)),
		spec(5014, "current_transformer", types.DataTypeU16, describe("0 internal, 1 external")),
		spec(5015, "export_power_limitation_percentage", types.DataTypeU16, scaled(0.1), unit(UnitPercentage)),
		spec(5016, "installed_pv_power", types.DataTypeU16, scaled(0.01), unit(UnitKiloWatt)),
		spec(5019, "power_factor_setting", types.DataTypeS16, scaled(0.001), describe("> 0 leading, < 0 lagging")),
		spec(5020, "active_power_overload", types.DataTypeU16, describe(enableNote+"; when enabled output follows command value times overload rate")),
		spec(5021, "local/remote_control", types.DataTypeU16, describe("0 invalid, 1 valid")),
		spec(5035, "night_SVG_switch", types.DataTypeU16, describe(enableNote)),
		spec(5036, "reactive_power_adjustment_mode", types.DataTypeU16, describe("0x55 off, 0xA1 power factor, 0xA2 reactive percentage, 0xA3 Q(P) curve, 0xA4 Q(U) curve")),
		spec(5037, "reactive_power_percentage_setting", types.DataTypeS16, scaled(0.1), unit(UnitPercentage)),
		spec(5039, "power_limitation_adjustment", types.DataTypeU16, scaled(0.1), unit(UnitKiloWatt)),
		spec(5040, "reactive_power_adjustment", types.DataTypeS16, scaled(0.1), unit(UnitKiloVar)),
		spec(5041, "PID_recovery", types.DataTypeU16, describe(enableNote)),
		spec(5042, "anti-PID", types.DataTypeU16, describe(enableNote)),
		spec(5043, "full-day_PID_suppression", types.DataTypeU16, scaled(0.1), unit(UnitKiloWatt), describe(enableNote)),
		spec(5048, "q_p_curve_1_5048", types.DataTypeU16, describe("Q(P) curve 1")),
		spec(5078, "q_p_curve_1_5078", types.DataTypeU16, describe("Q(P) curve 1")),
		spec(5116, "q_p_curve_2_5116", types.DataTypeU16, describe("Q(P) curve 2")),
		spec(5135, "q_p_curve_2_5135", types.DataTypeU16, describe("Q(P) curve 2")),
		spec(32569, "quick_grid_dispatch_mode", types.DataTypeU16, describe(enableNote)),
		spec(32570, "swift_grid_dispatch_mode", types.DataTypeU16)}
}

var (
	stringOnce    sync.Once
	stringCatalog *Catalog
	stringErr     error
)

// StringInverter returns the compiled-in catalog of the string inverter
// series. It is built on first use and shared afterwards.
func StringInverter() (*Catalog, error) {
	stringOnce.Do(func() {
		stringCatalog, stringErr = buildStringInverter()
	})
	return stringCatalog, stringErr
}

func buildStringInverter() (*Catalog, error) {
	var (
		registers []Register
		errs      []error
	)
	define := func(class types.RegisterClass, specs []RegisterSpec) {
		for _, s := range specs {
			s.Class = class
			r, err := Define(s)
			if err != nil {
				errs = append(errs, err)
				continue
			}
			registers = append(registers, r)
		}
	}
	define(types.RegisterClassRead, stringReadSpecs())
	define(types.RegisterClassHolding, stringHoldingSpecs())
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}

	info := types.DeviceProfileInfo{
		ID:          "sungrow-string",
		Vendor:      "Sungrow",
		Model:       "Grid-connected string inverter series",
		Version:     "1.0",
		Description: "SG..RT, SG..KTL-M, SG..CX and SG..HX string inverters",
	}
	return New(info, registers, stringScanRanges, builtinTables())
}

// spec options

type specOption func(*RegisterSpec)

func spec(address uint16, name string, dt types.DataType, opts ...specOption) RegisterSpec {
	s := RegisterSpec{Address: address, Name: name, DataType: dt}
	for _, o := range opts {
		o(&s)
	}
	return s
}

func scaled(f float64) specOption {
	return func(s *RegisterSpec) { s.Scale = &f }
}

func unit(u string) specOption {
	return func(s *RegisterSpec) { s.Unit = u }
}

func describe(d string) specOption {
	return func(s *RegisterSpec) { s.Description = d }
}

func table(t CodeTable) specOption {
	return func(s *RegisterSpec) { s.Table = t }
}

func bits(n int) specOption {
	return func(s *RegisterSpec) { s.Length = n }
}

func models(ids ...types.ModelID) specOption {
	return func(s *RegisterSpec) { s.Models = ids }
}
