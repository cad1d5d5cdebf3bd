// Package robot talks to a Go2 robot over its WebRTC datachannel.
package robot

// Datachannel topics used by the Go2 firmware.
const (
	TopicSport            = "rt/api/sport/request"
	TopicMotionSwitcher   = "rt/api/motion_switcher/request"
	TopicVUI              = "rt/api/vui/request"
	TopicObstaclesAvoid   = "rt/api/obstacles_avoid/request"
	TopicSportModeState   = "rt/sportmodestate"
	TopicLFSportModeState = "rt/lf/sportmodestate"
	TopicLowState         = "rt/lf/lowstate"
	TopicMultipleState    = "rt/multiplestate"
)

// Motion switcher API ids.
const (
	APIMotionGetMode = 1001
	APIMotionSetMode = 1002
)

// ModeNormal is the motion mode that accepts sport Move commands.
const ModeNormal = "normal"

// SportCmd maps sport command names to their API ids.
var SportCmd = map[string]int{
	"Damp":               1001,
	"BalanceStand":       1002,
	"StopMove":           1003,
	"StandUp":            1004,
	"StandDown":          1005,
	"RecoveryStand":      1006,
	"Euler":              1007,
	"Move":               1008,
	"Sit":                1009,
	"RiseSit":            1010,
	"SwitchGait":         1011,
	"Trigger":            1012,
	"BodyHeight":         1013,
	"FootRaiseHeight":    1014,
	"SpeedLevel":         1015,
	"Hello":              1016,
	"Stretch":            1017,
	"TrajectoryFollow":   1018,
	"ContinuousGait":     1019,
	"Content":            1020,
	"Wallow":             1021,
	"Dance1":             1022,
	"Dance2":             1023,
	"GetBodyHeight":      1024,
	"GetFootRaiseHeight": 1025,
	"GetSpeedLevel":      1026,
	"SwitchJoystick":     1027,
	"Pose":               1028,
	"Scrape":             1029,
	"FrontFlip":          1030,
	"FrontJump":          1031,
	"FrontPounce":        1032,
	"WiggleHips":         1033,
	"GetState":           1034,
	"EconomicGait":       1035,
	"FingerHeart":        1036,
}
