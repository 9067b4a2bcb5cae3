package packet

import "time"

// Packet is one decoded datagram. Data holds the variant selected by
// Header.PacketID; Type repeats the variant name for JSON consumers.
type Packet struct {
	Header Header `json:"header"`
	Type   string `json:"type"`
	Data   Data   `json:"data"`
}

// Data is the closed set of packet variants.
type Data interface {
	PacketID() ID
	isData()
}

// CarMotion is one car's physics state.
type CarMotion struct {
	WorldPositionX     float32 `json:"world_position_x"`
	WorldPositionY     float32 `json:"world_position_y"`
	WorldPositionZ     float32 `json:"world_position_z"`
	WorldVelocityX     float32 `json:"world_velocity_x"`
	WorldVelocityY     float32 `json:"world_velocity_y"`
	WorldVelocityZ     float32 `json:"world_velocity_z"`
	WorldForwardDirX   int16   `json:"world_forward_dir_x"`
	WorldForwardDirY   int16   `json:"world_forward_dir_y"`
	WorldForwardDirZ   int16   `json:"world_forward_dir_z"`
	WorldRightDirX     int16   `json:"world_right_dir_x"`
	WorldRightDirY     int16   `json:"world_right_dir_y"`
	WorldRightDirZ     int16   `json:"world_right_dir_z"`
	GForceLateral      float32 `json:"g_force_lateral"`
	GForceLongitudinal float32 `json:"g_force_longitudinal"`
	GForceVertical     float32 `json:"g_force_vertical"`
	Yaw                float32 `json:"yaw"`
	Pitch              float32 `json:"pitch"`
	Roll               float32 `json:"roll"`
}

// Motion carries physics for every car.
type Motion struct {
	Cars [NumCars]CarMotion `json:"cars"`
}

// MarshalZone is one marshal sector and its flag.
type MarshalZone struct {
	ZoneStart float32 `json:"zone_start"`
	ZoneFlag  int8    `json:"zone_flag"`
}

// WeatherForecast is one forecast sample.
type WeatherForecast struct {
	SessionType            uint8 `json:"session_type"`
	TimeOffset             uint8 `json:"time_offset"`
	Weather                uint8 `json:"weather"`
	TrackTemperature       int8  `json:"track_temperature"`
	TrackTemperatureChange int8  `json:"track_temperature_change"`
	AirTemperature         int8  `json:"air_temperature"`
	AirTemperatureChange   int8  `json:"air_temperature_change"`
	RainPercentage         uint8 `json:"rain_percentage"`
}

// Session carries track, weather and rules for the running session.
type Session struct {
	Weather                   uint8               `json:"weather"`
	TrackTemperature          int8                `json:"track_temperature"`
	AirTemperature            int8                `json:"air_temperature"`
	TotalLaps                 uint8               `json:"total_laps"`
	TrackLength               uint16              `json:"track_length"`
	SessionType               uint8               `json:"session_type"`
	TrackID                   int8                `json:"track_id"`
	Formula                   uint8               `json:"formula"`
	SessionTimeLeft           uint16              `json:"session_time_left"`
	SessionDuration           uint16              `json:"session_duration"`
	PitSpeedLimit             uint8               `json:"pit_speed_limit"`
	GamePaused                uint8               `json:"game_paused"`
	IsSpectating              uint8               `json:"is_spectating"`
	SpectatorCarIndex         uint8               `json:"spectator_car_index"`
	SLIProNativeSupport       uint8               `json:"sli_pro_native_support"`
	NumMarshalZones           uint8               `json:"num_marshal_zones"`
	MarshalZones              [21]MarshalZone     `json:"marshal_zones"`
	SafetyCarStatus           uint8               `json:"safety_car_status"`
	NetworkGame               uint8               `json:"network_game"`
	NumWeatherForecastSamples uint8               `json:"num_weather_forecast_samples"`
	WeatherForecastSamples    [64]WeatherForecast `json:"weather_forecast_samples"`
	ForecastAccuracy          uint8               `json:"forecast_accuracy"`
	AIDifficulty              uint8               `json:"ai_difficulty"`
	SeasonLinkIdentifier      uint32              `json:"season_link_identifier"`
	WeekendLinkIdentifier     uint32              `json:"weekend_link_identifier"`
	SessionLinkIdentifier     uint32              `json:"session_link_identifier"`
	PitStopWindowIdealLap     uint8               `json:"pit_stop_window_ideal_lap"`
	PitStopWindowLatestLap    uint8               `json:"pit_stop_window_latest_lap"`
	PitStopRejoinPosition     uint8               `json:"pit_stop_rejoin_position"`

	// Assists, rules and weekend structure.
	SteeringAssist                  uint8               `json:"steering_assist"`
	BrakingAssist                   uint8               `json:"braking_assist"`
	GearboxAssist                   uint8               `json:"gearbox_assist"`
	PitAssist                       uint8               `json:"pit_assist"`
	PitReleaseAssist                uint8               `json:"pit_release_assist"`
	ERSAssist                       uint8               `json:"ers_assist"`
	DRSAssist                       uint8               `json:"drs_assist"`
	DynamicRacingLine               uint8               `json:"dynamic_racing_line"`
	DynamicRacingLineType           uint8               `json:"dynamic_racing_line_type"`
	GameMode                        uint8               `json:"game_mode"`
	RuleSet                         uint8               `json:"rule_set"`
	TimeOfDay                       uint32              `json:"time_of_day"`
	SessionLength                   uint8               `json:"session_length"`
	SpeedUnitsLeadPlayer            uint8               `json:"speed_units_lead_player"`
	TemperatureUnitsLeadPlayer      uint8               `json:"temperature_units_lead_player"`
	SpeedUnitsSecondaryPlayer       uint8               `json:"speed_units_secondary_player"`
	TemperatureUnitsSecondaryPlayer uint8               `json:"temperature_units_secondary_player"`
	NumSafetyCarPeriods             uint8               `json:"num_safety_car_periods"`
	NumVirtualSafetyCarPeriods      uint8               `json:"num_virtual_safety_car_periods"`
	NumRedFlagPeriods               uint8               `json:"num_red_flag_periods"`
	EqualCarPerformance             uint8               `json:"equal_car_performance"`
	RecoveryMode                    uint8               `json:"recovery_mode"`
	FlashbackLimit                  uint8               `json:"flashback_limit"`
	SurfaceType                     uint8               `json:"surface_type"`
	LowFuelMode                     uint8               `json:"low_fuel_mode"`
	RaceStarts                      uint8               `json:"race_starts"`
	TyreTemperature                 uint8               `json:"tyre_temperature"`
	PitLaneTyreSim                  uint8               `json:"pit_lane_tyre_sim"`
	CarDamage                       uint8               `json:"car_damage"`
	CarDamageRate                   uint8               `json:"car_damage_rate"`
	Collisions                      uint8               `json:"collisions"`
	CollisionsOffForFirstLapOnly    uint8               `json:"collisions_off_for_first_lap_only"`
	MPUnsafePitRelease              uint8               `json:"mp_unsafe_pit_release"`
	MPOffForGriefing                uint8               `json:"mp_off_for_griefing"`
	CornerCuttingStringency         uint8               `json:"corner_cutting_stringency"`
	ParcFermeRules                  uint8               `json:"parc_ferme_rules"`
	PitStopExperience               uint8               `json:"pit_stop_experience"`
	SafetyCar                       uint8               `json:"safety_car"`
	SafetyCarExperience             uint8               `json:"safety_car_experience"`
	FormationLap                    uint8               `json:"formation_lap"`
	FormationLapExperience          uint8               `json:"formation_lap_experience"`
	RedFlags                        uint8               `json:"red_flags"`
	AffectsLicenceLevelSolo         uint8               `json:"affects_licence_level_solo"`
	AffectsLicenceLevelMP           uint8               `json:"affects_licence_level_mp"`
	NumSessionsInWeekend            uint8               `json:"num_sessions_in_weekend"`
	WeekendStructure                [12]uint8           `json:"weekend_structure"`
	Sector2LapDistanceStart         float32             `json:"sector2_lap_distance_start"`
	Sector3LapDistanceStart         float32             `json:"sector3_lap_distance_start"`
}

// TrackName returns the human-readable track name.
func (s *Session) TrackName() string { return TrackName(s.TrackID) }

// SessionTypeName returns the human-readable session type.
func (s *Session) SessionTypeName() string { return SessionTypeName(s.SessionType) }

// LapData is one car's lap and race-position state.
type LapData struct {
	LastLapTimeMS                uint32  `json:"last_lap_time_ms"`
	CurrentLapTimeMS             uint32  `json:"current_lap_time_ms"`
	Sector1TimeMSPart            uint16  `json:"sector1_time_ms_part"`
	Sector1TimeMinutesPart       uint8   `json:"sector1_time_minutes_part"`
	Sector2TimeMSPart            uint16  `json:"sector2_time_ms_part"`
	Sector2TimeMinutesPart       uint8   `json:"sector2_time_minutes_part"`
	DeltaToCarInFrontMSPart      uint16  `json:"delta_to_car_in_front_ms_part"`
	DeltaToCarInFrontMinutesPart uint8   `json:"delta_to_car_in_front_minutes_part"`
	DeltaToRaceLeaderMSPart      uint16  `json:"delta_to_race_leader_ms_part"`
	DeltaToRaceLeaderMinutesPart uint8   `json:"delta_to_race_leader_minutes_part"`
	LapDistance                  float32 `json:"lap_distance"`
	TotalDistance                float32 `json:"total_distance"`
	SafetyCarDelta               float32 `json:"safety_car_delta"`
	CarPosition                  uint8   `json:"car_position"`
	CurrentLapNum                uint8   `json:"current_lap_num"`
	PitStatus                    uint8   `json:"pit_status"`
	NumPitStops                  uint8   `json:"num_pit_stops"`
	Sector                       uint8   `json:"sector"`
	CurrentLapInvalid            uint8   `json:"current_lap_invalid"`
	Penalties                    uint8   `json:"penalties"`
	TotalWarnings                uint8   `json:"total_warnings"`
	CornerCuttingWarnings        uint8   `json:"corner_cutting_warnings"`
	NumUnservedDriveThroughPens  uint8   `json:"num_unserved_drive_through_pens"`
	NumUnservedStopGoPens        uint8   `json:"num_unserved_stop_go_pens"`
	GridPosition                 uint8   `json:"grid_position"`
	DriverStatus                 uint8   `json:"driver_status"`
	ResultStatus                 uint8   `json:"result_status"`
	PitLaneTimerActive           uint8   `json:"pit_lane_timer_active"`
	PitLaneTimeInLaneMS          uint16  `json:"pit_lane_time_in_lane_ms"`
	PitStopTimerMS               uint16  `json:"pit_stop_timer_ms"`
	PitStopShouldServePen        uint8   `json:"pit_stop_should_serve_pen"`
	SpeedTrapFastestSpeed        float32 `json:"speed_trap_fastest_speed"`
	SpeedTrapFastestLap          uint8   `json:"speed_trap_fastest_lap"`
}

// LastLapTime returns the last completed lap time, zero when none.
func (l *LapData) LastLapTime() time.Duration {
	return time.Duration(l.LastLapTimeMS) * time.Millisecond
}

// Sector1Time returns the current lap's sector 1 time, zero until set.
func (l *LapData) Sector1Time() time.Duration {
	return splitTime(l.Sector1TimeMinutesPart, l.Sector1TimeMSPart)
}

// Sector2Time returns the current lap's sector 2 time, zero until set.
func (l *LapData) Sector2Time() time.Duration {
	return splitTime(l.Sector2TimeMinutesPart, l.Sector2TimeMSPart)
}

func splitTime(minutes uint8, ms uint16) time.Duration {
	return time.Duration(minutes)*time.Minute + time.Duration(ms)*time.Millisecond
}

// TimeTrialIndices is the optional lap data trailer.
type TimeTrialIndices struct {
	PersonalBestCarIdx uint8 `json:"personal_best_car_idx"`
	RivalCarIdx        uint8 `json:"rival_car_idx"`
}

// Laps carries lap data for every car.
type Laps struct {
	Cars      [NumCars]LapData  `json:"cars"`
	TimeTrial *TimeTrialIndices `json:"time_trial,omitempty"`
}

// LiveryColour is one RGB livery colour.
type LiveryColour struct {
	Red   uint8 `json:"red"`
	Green uint8 `json:"green"`
	Blue  uint8 `json:"blue"`
}

// Participant describes one car's driver.
type Participant struct {
	AIControlled    uint8          `json:"ai_controlled"`
	DriverID        uint8          `json:"driver_id"`
	NetworkID       uint8          `json:"network_id"`
	TeamID          uint8          `json:"team_id"`
	MyTeam          uint8          `json:"my_team"`
	RaceNumber      uint8          `json:"race_number"`
	Nationality     uint8          `json:"nationality"`
	Name            string         `json:"name"`
	YourTelemetry   uint8          `json:"your_telemetry"`
	ShowOnlineNames uint8          `json:"show_online_names"`
	TechLevel       uint16         `json:"tech_level"`
	Platform        uint8          `json:"platform"`
	LiveryColours   []LiveryColour `json:"livery_colours,omitempty"`
}

// Participants lists every car's driver.
type Participants struct {
	NumActiveCars uint8                 `json:"num_active_cars"`
	Cars          [NumCars]Participant `json:"cars"`
}

// CarSetup is one car's setup.
type CarSetup struct {
	FrontWing              uint8   `json:"front_wing"`
	RearWing               uint8   `json:"rear_wing"`
	OnThrottle             uint8   `json:"on_throttle"`
	OffThrottle            uint8   `json:"off_throttle"`
	FrontCamber            float32 `json:"front_camber"`
	RearCamber             float32 `json:"rear_camber"`
	FrontToe               float32 `json:"front_toe"`
	RearToe                float32 `json:"rear_toe"`
	FrontSuspension        uint8   `json:"front_suspension"`
	RearSuspension         uint8   `json:"rear_suspension"`
	FrontAntiRollBar       uint8   `json:"front_anti_roll_bar"`
	RearAntiRollBar        uint8   `json:"rear_anti_roll_bar"`
	FrontSuspensionHeight  uint8   `json:"front_suspension_height"`
	RearSuspensionHeight   uint8   `json:"rear_suspension_height"`
	BrakePressure          uint8   `json:"brake_pressure"`
	BrakeBias              uint8   `json:"brake_bias"`
	EngineBraking          uint8   `json:"engine_braking"`
	RearLeftTyrePressure   float32 `json:"rear_left_tyre_pressure"`
	RearRightTyrePressure  float32 `json:"rear_right_tyre_pressure"`
	FrontLeftTyrePressure  float32 `json:"front_left_tyre_pressure"`
	FrontRightTyrePressure float32 `json:"front_right_tyre_pressure"`
	Ballast                uint8   `json:"ballast"`
	FuelLoad               float32 `json:"fuel_load"`
}

// CarSetups carries every car's setup.
type CarSetups struct {
	Cars               [NumCars]CarSetup `json:"cars"`
	NextFrontWingValue float32           `json:"next_front_wing_value"`
}

// CarTelemetryData is one car's driver inputs and sensors.
// Throttle, brake and steer keep their native normalized range.
type CarTelemetryData struct {
	Speed                   uint16     `json:"speed"`
	Throttle                float32    `json:"throttle"`
	Steer                   float32    `json:"steer"`
	Brake                   float32    `json:"brake"`
	Clutch                  uint8      `json:"clutch"`
	Gear                    int8       `json:"gear"`
	EngineRPM               uint16     `json:"engine_rpm"`
	DRS                     uint8      `json:"drs"`
	RevLightsPercent        uint8      `json:"rev_lights_percent"`
	RevLightsBitValue       uint16     `json:"rev_lights_bit_value"`
	BrakesTemperature       [4]uint16  `json:"brakes_temperature"`
	TyresSurfaceTemperature [4]uint8   `json:"tyres_surface_temperature"`
	TyresInnerTemperature   [4]uint8   `json:"tyres_inner_temperature"`
	EngineTemperature       uint16     `json:"engine_temperature"`
	TyresPressure           [4]float32 `json:"tyres_pressure"`
	SurfaceType             [4]uint8   `json:"surface_type"`
}

// MFDState is the optional car telemetry trailer.
type MFDState struct {
	PanelIndex                uint8 `json:"panel_index"`
	PanelIndexSecondaryPlayer uint8 `json:"panel_index_secondary_player"`
	SuggestedGear             int8  `json:"suggested_gear"`
}

// CarTelemetry carries telemetry for every car.
type CarTelemetry struct {
	Cars [NumCars]CarTelemetryData `json:"cars"`
	MFD  *MFDState                  `json:"mfd,omitempty"`
}

// CarStatusData is one car's fuel, tyre and energy state.
type CarStatusData struct {
	TractionControl         uint8   `json:"traction_control"`
	AntiLockBrakes          uint8   `json:"anti_lock_brakes"`
	FuelMix                 uint8   `json:"fuel_mix"`
	FrontBrakeBias          uint8   `json:"front_brake_bias"`
	PitLimiterStatus        uint8   `json:"pit_limiter_status"`
	FuelInTank              float32 `json:"fuel_in_tank"`
	FuelCapacity            float32 `json:"fuel_capacity"`
	FuelRemainingLaps       float32 `json:"fuel_remaining_laps"`
	MaxRPM                  uint16  `json:"max_rpm"`
	IdleRPM                 uint16  `json:"idle_rpm"`
	MaxGears                uint8   `json:"max_gears"`
	DRSAllowed              uint8   `json:"drs_allowed"`
	DRSActivationDistance   uint16  `json:"drs_activation_distance"`
	ActualTyreCompound      uint8   `json:"actual_tyre_compound"`
	VisualTyreCompound      uint8   `json:"visual_tyre_compound"`
	TyresAgeLaps            uint8   `json:"tyres_age_laps"`
	VehicleFIAFlags         int8    `json:"vehicle_fia_flags"`
	EnginePowerICE          float32 `json:"engine_power_ice"`
	EnginePowerMGUK         float32 `json:"engine_power_mguk"`
	ERSStoreEnergy          float32 `json:"ers_store_energy"`
	ERSDeployMode           uint8   `json:"ers_deploy_mode"`
	ERSHarvestedThisLapMGUK float32 `json:"ers_harvested_this_lap_mguk"`
	ERSHarvestedThisLapMGUH float32 `json:"ers_harvested_this_lap_mguh"`
	ERSDeployedThisLap      float32 `json:"ers_deployed_this_lap"`
	NetworkPaused           uint8   `json:"network_paused"`
}

// CarStatus carries status for every car.
type CarStatus struct {
	Cars [NumCars]CarStatusData `json:"cars"`
}

// FinalClassificationData is one car's race result.
// ResultReason is only populated by the 2025 format.
type FinalClassificationData struct {
	Position          uint8    `json:"position"`
	NumLaps           uint8    `json:"num_laps"`
	GridPosition      uint8    `json:"grid_position"`
	Points            uint8    `json:"points"`
	NumPitStops       uint8    `json:"num_pit_stops"`
	ResultStatus      uint8    `json:"result_status"`
	ResultReason      uint8    `json:"result_reason"`
	BestLapTimeMS     uint32   `json:"best_lap_time_ms"`
	TotalRaceTime     float64  `json:"total_race_time"`
	PenaltiesTime     uint8    `json:"penalties_time"`
	NumPenalties      uint8    `json:"num_penalties"`
	NumTyreStints     uint8    `json:"num_tyre_stints"`
	TyreStintsActual  [8]uint8 `json:"tyre_stints_actual"`
	TyreStintsVisual  [8]uint8 `json:"tyre_stints_visual"`
	TyreStintsEndLaps [8]uint8 `json:"tyre_stints_end_laps"`
}

// FinalClassification is the end-of-session result table.
type FinalClassification struct {
	NumCars uint8                             `json:"num_cars"`
	Cars    [NumCars]FinalClassificationData `json:"cars"`
}

// LobbyPlayer is one multiplayer lobby slot.
type LobbyPlayer struct {
	AIControlled    uint8  `json:"ai_controlled"`
	TeamID          uint8  `json:"team_id"`
	Nationality     uint8  `json:"nationality"`
	Platform        uint8  `json:"platform"`
	Name            string `json:"name"`
	CarNumber       uint8  `json:"car_number"`
	YourTelemetry   uint8  `json:"your_telemetry"`
	ShowOnlineNames uint8  `json:"show_online_names"`
	TechLevel       uint16 `json:"tech_level"`
	ReadyStatus     uint8  `json:"ready_status"`
}

// LobbyInfo lists lobby players before a multiplayer session.
type LobbyInfo struct {
	NumPlayers uint8                 `json:"num_players"`
	Players    [NumCars]LobbyPlayer `json:"players"`
}

// CarDamageData is one car's wear and damage.
// TyreBlisters is only populated by the 2025 format.
type CarDamageData struct {
	TyresWear            [4]float32 `json:"tyres_wear"`
	TyresDamage          [4]uint8   `json:"tyres_damage"`
	BrakesDamage         [4]uint8   `json:"brakes_damage"`
	TyreBlisters         [4]uint8   `json:"tyre_blisters"`
	FrontLeftWingDamage  uint8      `json:"front_left_wing_damage"`
	FrontRightWingDamage uint8      `json:"front_right_wing_damage"`
	RearWingDamage       uint8      `json:"rear_wing_damage"`
	FloorDamage          uint8      `json:"floor_damage"`
	DiffuserDamage       uint8      `json:"diffuser_damage"`
	SidepodDamage        uint8      `json:"sidepod_damage"`
	DRSFault             uint8      `json:"drs_fault"`
	ERSFault             uint8      `json:"ers_fault"`
	GearBoxDamage        uint8      `json:"gear_box_damage"`
	EngineDamage         uint8      `json:"engine_damage"`
	EngineMGUHWear       uint8      `json:"engine_mguh_wear"`
	EngineESWear         uint8      `json:"engine_es_wear"`
	EngineCEWear         uint8      `json:"engine_ce_wear"`
	EngineICEWear        uint8      `json:"engine_ice_wear"`
	EngineMGUKWear       uint8      `json:"engine_mguk_wear"`
	EngineTCWear         uint8      `json:"engine_tc_wear"`
	EngineBlown          uint8      `json:"engine_blown"`
	EngineSeized         uint8      `json:"engine_seized"`
}

// CarDamage carries damage for every car.
type CarDamage struct {
	Cars [NumCars]CarDamageData `json:"cars"`
}

// LapHistory is one completed lap in a car's history.
type LapHistory struct {
	LapTimeMS              uint32 `json:"lap_time_ms"`
	Sector1TimeMSPart      uint16 `json:"sector1_time_ms_part"`
	Sector1TimeMinutesPart uint8  `json:"sector1_time_minutes_part"`
	Sector2TimeMSPart      uint16 `json:"sector2_time_ms_part"`
	Sector2TimeMinutesPart uint8  `json:"sector2_time_minutes_part"`
	Sector3TimeMSPart      uint16 `json:"sector3_time_ms_part"`
	Sector3TimeMinutesPart uint8  `json:"sector3_time_minutes_part"`
	LapValidBitFlags       uint8  `json:"lap_valid_bit_flags"`
}

// TyreStintHistory is one tyre stint in a car's history.
type TyreStintHistory struct {
	EndLap             uint8 `json:"end_lap"`
	TyreActualCompound uint8 `json:"tyre_actual_compound"`
	TyreVisualCompound uint8 `json:"tyre_visual_compound"`
}

// SessionHistory is one car's lap and stint history.
type SessionHistory struct {
	CarIdx            uint8               `json:"car_idx"`
	NumLaps           uint8               `json:"num_laps"`
	NumTyreStints     uint8               `json:"num_tyre_stints"`
	BestLapTimeLapNum uint8               `json:"best_lap_time_lap_num"`
	BestSector1LapNum uint8               `json:"best_sector1_lap_num"`
	BestSector2LapNum uint8               `json:"best_sector2_lap_num"`
	BestSector3LapNum uint8               `json:"best_sector3_lap_num"`
	Laps              [100]LapHistory     `json:"laps"`
	TyreStints        [8]TyreStintHistory `json:"tyre_stints"`
}

// TyreSet is one tyre set available to a car.
type TyreSet struct {
	ActualTyreCompound uint8 `json:"actual_tyre_compound"`
	VisualTyreCompound uint8 `json:"visual_tyre_compound"`
	Wear               uint8 `json:"wear"`
	Available          uint8 `json:"available"`
	RecommendedSession uint8 `json:"recommended_session"`
	LifeSpan           uint8 `json:"life_span"`
	UsableLife         uint8 `json:"usable_life"`
	LapDeltaTime       int16 `json:"lap_delta_time"`
	Fitted             uint8 `json:"fitted"`
}

// TyreSets lists one car's tyre allocation.
type TyreSets struct {
	CarIdx    uint8       `json:"car_idx"`
	Sets      [20]TyreSet `json:"sets"`
	FittedIdx uint8       `json:"fitted_idx"`
}

// MotionExBase is the extended motion block shared by both formats.
type MotionExBase struct {
	SuspensionPosition     [4]float32 `json:"suspension_position"`
	SuspensionVelocity     [4]float32 `json:"suspension_velocity"`
	SuspensionAcceleration [4]float32 `json:"suspension_acceleration"`
	WheelSpeed             [4]float32 `json:"wheel_speed"`
	WheelSlipRatio         [4]float32 `json:"wheel_slip_ratio"`
	WheelSlipAngle         [4]float32 `json:"wheel_slip_angle"`
	WheelLatForce          [4]float32 `json:"wheel_lat_force"`
	WheelLongForce         [4]float32 `json:"wheel_long_force"`
	HeightOfCOGAboveGround float32    `json:"height_of_cog_above_ground"`
	LocalVelocityX         float32    `json:"local_velocity_x"`
	LocalVelocityY         float32    `json:"local_velocity_y"`
	LocalVelocityZ         float32    `json:"local_velocity_z"`
	AngularVelocityX       float32    `json:"angular_velocity_x"`
	AngularVelocityY       float32    `json:"angular_velocity_y"`
	AngularVelocityZ       float32    `json:"angular_velocity_z"`
	AngularAccelerationX   float32    `json:"angular_acceleration_x"`
	AngularAccelerationY   float32    `json:"angular_acceleration_y"`
	AngularAccelerationZ   float32    `json:"angular_acceleration_z"`
	FrontWheelsAngle       float32    `json:"front_wheels_angle"`
	WheelVertForce         [4]float32 `json:"wheel_vert_force"`
	FrontAeroHeight        float32    `json:"front_aero_height"`
	RearAeroHeight         float32    `json:"rear_aero_height"`
	FrontRollAngle         float32    `json:"front_roll_angle"`
	RearRollAngle          float32    `json:"rear_roll_angle"`
	ChassisYaw             float32    `json:"chassis_yaw"`
}

// MotionEx is the player car's extended physics. The trailing fields are
// only populated by the 2025 format.
type MotionEx struct {
	MotionExBase
	ChassisPitch    float32    `json:"chassis_pitch"`
	WheelCamber     [4]float32 `json:"wheel_camber"`
	WheelCamberGain [4]float32 `json:"wheel_camber_gain"`
}

// TimeTrialDataSet is one time trial reference lap.
type TimeTrialDataSet struct {
	CarIdx              uint8  `json:"car_idx"`
	TeamID              uint8  `json:"team_id"`
	LapTimeMS           uint32 `json:"lap_time_ms"`
	Sector1TimeMS       uint32 `json:"sector1_time_ms"`
	Sector2TimeMS       uint32 `json:"sector2_time_ms"`
	Sector3TimeMS       uint32 `json:"sector3_time_ms"`
	TractionControl     uint8  `json:"traction_control"`
	GearboxAssist       uint8  `json:"gearbox_assist"`
	AntiLockBrakes      uint8  `json:"anti_lock_brakes"`
	EqualCarPerformance uint8  `json:"equal_car_performance"`
	CustomSetup         uint8  `json:"custom_setup"`
	Valid               uint8  `json:"valid"`
}

// TimeTrial carries the time trial reference laps.
type TimeTrial struct {
	PlayerSessionBest TimeTrialDataSet `json:"player_session_best"`
	PersonalBest      TimeTrialDataSet `json:"personal_best"`
	Rival             TimeTrialDataSet `json:"rival"`
}

// LapPositions is the 2025 lap-by-lap position chart.
type LapPositions struct {
	NumLaps           uint8               `json:"num_laps"`
	LapStart          uint8               `json:"lap_start"`
	PositionForVehicle [50][NumCars]uint8 `json:"position_for_vehicle"`
}

func (*Motion) PacketID() ID              { return IDMotion }
func (*Session) PacketID() ID             { return IDSession }
func (*Laps) PacketID() ID                { return IDLapData }
func (*Event) PacketID() ID               { return IDEvent }
func (*Participants) PacketID() ID        { return IDParticipants }
func (*CarSetups) PacketID() ID           { return IDCarSetups }
func (*CarTelemetry) PacketID() ID        { return IDCarTelemetry }
func (*CarStatus) PacketID() ID           { return IDCarStatus }
func (*FinalClassification) PacketID() ID { return IDFinalClassification }
func (*LobbyInfo) PacketID() ID           { return IDLobbyInfo }
func (*CarDamage) PacketID() ID           { return IDCarDamage }
func (*SessionHistory) PacketID() ID      { return IDSessionHistory }
func (*TyreSets) PacketID() ID            { return IDTyreSets }
func (*MotionEx) PacketID() ID            { return IDMotionEx }
func (*TimeTrial) PacketID() ID           { return IDTimeTrial }
func (*LapPositions) PacketID() ID        { return IDLapPositions }

func (*Motion) isData()              {}
func (*Session) isData()             {}
func (*Laps) isData()                {}
func (*Event) isData()               {}
func (*Participants) isData()        {}
func (*CarSetups) isData()           {}
func (*CarTelemetry) isData()        {}
func (*CarStatus) isData()           {}
func (*FinalClassification) isData() {}
func (*LobbyInfo) isData()           {}
func (*CarDamage) isData()           {}
func (*SessionHistory) isData()      {}
func (*TyreSets) isData()            {}
func (*MotionEx) isData()            {}
func (*TimeTrial) isData()           {}
func (*LapPositions) isData()        {}
