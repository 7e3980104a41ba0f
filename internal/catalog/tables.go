package catalog

import "github.com/umthana/SungrowInverter/internal/types"

// Code table names.
const (
	TableOutputType      = "output_type"
	TableDeviceWorkState = "device_work_state"
	TableWorkStateFlags  = "work_state_flags"
	TableCountry         = "country"
	TablePIDWorkState    = "pid_work_state"
	TablePIDAlarm        = "pid_alarm"
)

// workStateBits is the significant width of the work state word (5081-5082).
const workStateBits = 19

var (
	outputTypeCodes = NewLabelTable(TableOutputType, []types.CodeEntry{
		{Code: 0, Label: "Single phase"},
		{Code: 1, Label: "3P4L"},
		{Code: 2, Label: "3P3L"},
	})

	// Register 5038. Exactly one state applies per read.
	deviceWorkStateCodes = NewLabelTable(TableDeviceWorkState, []types.CodeEntry{
		{Code: 0x0000, Label: "Run"},
		{Code: 0x8000, Label: "Stop"},
		{Code: 0x1300, Label: "Key stop"},
		{Code: 0x1500, Label: "Emergency stop"},
		{Code: 0x1400, Label: "Standby"},
		{Code: 0x1200, Label: "Initial standby"},
		{Code: 0x1600, Label: "Starting"},
		{Code: 0x9100, Label: "Alarm run"},
		{Code: 0x8100, Label: "Derating run"},
		{Code: 0x8200, Label: "Dispatch run"},
		{Code: 0x5500, Label: "Fault"},
		{Code: 0x2500, Label: "Communicate fault"},
		{Code: 0x1111, Label: "Uninitialized"},
	})

	// Registers 5081-5082, one flag per bit.
	workStateFlags = mustFlagTable(TableWorkStateFlags, workStateBits, []types.CodeEntry{
		{Code: 0, Label: "status_run"},
		{Code: 1, Label: "status_stop"},
		{Code: 2, Label: "status_initial_standby"},
		{Code: 3, Label: "status_key_stop"},
		{Code: 4, Label: "status_standby"},
		{Code: 5, Label: "status_emergency_stop"},
		{Code: 6, Label: "status_starting"},
		{Code: 9, Label: "status_fault"},
		{Code: 10, Label: "status_alarm_run"},
		{Code: 11, Label: "status_derating_run"},
		{Code: 12, Label: "status_dispatch_run"},
		{Code: 13, Label: "status_communicate_fault"},
		{Code: 17, Label: "status_grid_connected"},
		{Code: 18, Label: "status_fault_stop"},
	})

	// Not a bijection: Poland is both 32 and 34.
	countryCodes = NewLabelTable(TableCountry, []types.CodeEntry{
		{Code: 61, Label: "America"},
		{Code: 98, Label: "America(1741-SA)"},
		{Code: 59, Label: "America(Hawaii)"},
		{Code: 97, Label: "America(ISO-NE)"},
		{Code: 27, Label: "Arab Emirates"},
		{Code: 6, Label: "Australia"},
		{Code: 20, Label: "Australia (West)"},
		{Code: 5, Label: "Austria"},
		{Code: 25, Label: "Austria (Vorarlberg)"},
		{Code: 8, Label: "Belgium"},
		{Code: 66, Label: "Brazil"},
		{Code: 60, Label: "Canada"},
		{Code: 65, Label: "Chile"},
		{Code: 14, Label: "China"},
		{Code: 67, Label: "Chinese Taipei"},
		{Code: 7, Label: "Czech"},
		{Code: 9, Label: "Denmark"},
		{Code: 76, Label: "EN50549-1 Europe"},
		{Code: 77, Label: "EN50549-2 Europe"},
		{Code: 40, Label: "Finland"},
		{Code: 2, Label: "France"},
		{Code: 1, Label: "Germany"},
		{Code: 0, Label: "Great Britain"},
		{Code: 11, Label: "Greece (Island)"},
		{Code: 10, Label: "Greece (Land)"},
		{Code: 29, Label: "Hungary"},
		{Code: 26, Label: "IND India"},
		{Code: 41, Label: "Ireland"},
		{Code: 28, Label: "Israel"},
		{Code: 3, Label: "Italy"},
		{Code: 69, Label: "Japan"},
		{Code: 63, Label: "Korea"},
		{Code: 30, Label: "Malaysia"},
		{Code: 170, Label: "Mexico"},
		{Code: 12, Label: "Netherlands"},
		{Code: 99, Label: "New Zealand"},
		{Code: 38, Label: "Oman"},
		{Code: 16, Label: "Other 50Hz"},
		{Code: 62, Label: "Other 60Hz"},
		{Code: 31, Label: "Philippines"},
		{Code: 32, Label: "Poland"},
		{Code: 34, Label: "Poland"},
		{Code: 13, Label: "Portugal"},
		{Code: 17, Label: "Romania"},
		{Code: 39, Label: "Saudi Arabia"}, // vendor list misspells it "Sandi Arabia"
		{Code: 64, Label: "South Africa"},
		{Code: 4, Label: "Spain"},
		{Code: 15, Label: "Sweden"},
		{Code: 18, Label: "Thailand"},
		{Code: 35, Label: "Thailand-MEA"},
		{Code: 19, Label: "Turkey"},
		{Code: 36, Label: "Vietnam"},
	})

	pidWorkStateCodes = NewLabelTable(TablePIDWorkState, []types.CodeEntry{
		{Code: 2, Label: "PID Recover Operation"},
		{Code: 4, Label: "Anti-PID Operation"},
		{Code: 8, Label: "PID Abnormity"},
	})

	pidAlarmCodes = NewLabelTable(TablePIDAlarm, []types.CodeEntry{
		{Code: 432, Label: "PID resistance abnormal"},
		{Code: 433, Label: "PID function abnormal"},
		{Code: 434, Label: "PID overvoltage/overcurrent protection"},
	})
)

func mustFlagTable(name string, width int, entries []types.CodeEntry) *FlagTable {
	t, err := NewFlagTable(name, width, entries)
	if err != nil {
		panic(err)
	}
	return t
}

func OutputTypeCodes() *LabelTable { return outputTypeCodes }

// DeviceWorkStateCodes is the legacy single-state table (register 5038).
func DeviceWorkStateCodes() *LabelTable { return deviceWorkStateCodes }

// WorkStateFlags is the bitfield work state table (registers 5081-5082).
func WorkStateFlags() *FlagTable { return workStateFlags }

func CountryCodes() *LabelTable { return countryCodes }

func PIDWorkStateCodes() *LabelTable { return pidWorkStateCodes }

func PIDAlarmCodes() *LabelTable { return pidAlarmCodes }

func builtinTables() []CodeTable {
	return []CodeTable{
		outputTypeCodes,
		deviceWorkStateCodes,
		workStateFlags,
		countryCodes,
		pidWorkStateCodes,
		pidAlarmCodes,
	}
}
