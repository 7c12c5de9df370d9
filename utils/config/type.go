package config

// Lane 车道静态描述
// 功能：定义一条进口车道的生成点、停车线与行驶方向
// 说明：stop_coordinate所在的坐标轴由行驶方向决定（west/east为x轴，north为y轴）
type Lane struct {
	SpawnX         float64 `yaml:"spawn_x"`         // 车辆生成点x坐标
	SpawnY         float64 `yaml:"spawn_y"`         // 车辆生成点y坐标
	StopCoordinate float64 `yaml:"stop_coordinate"` // 停车线坐标
	Direction      string  `yaml:"direction"`       // 行驶方向：west|north|east
	Group          string  `yaml:"group"`           // 所属信号组：A|B
}

// Control 模拟器控制配置
// 功能：定义仿真时间推进参数
type Control struct {
	TickDelay float64 `yaml:"tick_delay"`     // 两次更新之间的等待时间（秒）
	Start     int32   `yaml:"start"`          // 开始步数
	Total     int32   `yaml:"total"`          // 总步数，0表示一直运行直到进程退出
	Seed      uint64  `yaml:"seed,omitempty"` // 车辆生成随机数种子
}

// Signal 自适应信号控制配置
// 功能：定义压力分数的权重与防抖参数
// 说明：score = count_weight * 排队数 + time_weight * 总等待时间
type Signal struct {
	CountWeightA         float64 `yaml:"count_weight_A"`
	CountWeightB         float64 `yaml:"count_weight_B"`
	TimeWeightA          float64 `yaml:"time_weight_A"`
	TimeWeightB          float64 `yaml:"time_weight_B"`
	MinSwitchInterval    float64 `yaml:"min_switch_interval"`    // 两次切换之间的最小间隔（秒）
	HoldingDurationTicks int32   `yaml:"holding_duration_ticks"` // 切换后全红保持的步数阈值
}

// Vehicle 车辆配置
type Vehicle struct {
	SpawnProbability float64 `yaml:"spawn_probability"` // 每步生成车辆的概率
	VehicleSize      float64 `yaml:"vehicle_size"`      // 车身边长
	FollowGap        float64 `yaml:"follow_gap"`        // 跟车最小间隙
	DwellDuration    float64 `yaml:"dwell_duration"`    // 过线后保留的时间（秒）
}

// Config YAML配置文件的根结构
// 功能：定义整个仿真系统的配置结构
type Config struct {
	Control Control `yaml:"control"` // 模拟过程控制
	Signal  Signal  `yaml:"signal"`  // 信号控制
	Vehicle Vehicle `yaml:"vehicle"` // 车辆
	Lanes   []Lane  `yaml:"lanes"`   // 进口车道
}

// Default 返回默认配置
// 功能：给出一个五车道路口（A组四条东西向直行车道，B组一条北向车道）的完整配置
// 说明：YAML文件只需覆盖需要修改的字段
func Default() Config {
	return Config{
		Control: Control{
			TickDelay: 0.2,
		},
		Signal: Signal{
			CountWeightA:         0.6,
			CountWeightB:         1,
			TimeWeightA:          0.4,
			TimeWeightB:          0.85,
			MinSwitchInterval:    4,
			HoldingDurationTicks: 5,
		},
		Vehicle: Vehicle{
			SpawnProbability: 0.82,
			VehicleSize:      40,
			FollowGap:        5,
			DwellDuration:    8,
		},
		Lanes: []Lane{
			{SpawnX: 1500, SpawnY: 81.5, StopCoordinate: 850, Direction: "west", Group: "A"},
			{SpawnX: 1500, SpawnY: 144, StopCoordinate: 850, Direction: "west", Group: "A"},
			{SpawnX: 0, SpawnY: 206.5, StopCoordinate: 650, Direction: "east", Group: "A"},
			{SpawnX: 0, SpawnY: 269, StopCoordinate: 650, Direction: "east", Group: "A"},
			{SpawnX: 800, SpawnY: 800, StopCoordinate: 300, Direction: "north", Group: "B"},
		},
	}
}
