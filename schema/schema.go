// Package schema 静态声明客户画像的字段契约，并在服务边界完成校验与归一化。
//
// 设计原则：
//   - 字段集合、类型、枚举取值全部静态声明，校验不依赖运行时反射
//   - 校验一次收集全部字段错误，而不是遇错即停
//   - 库内部不抛校验错误：校验只发生在边界（HTTP handler、数据集加载）
package schema

// Kind 是字段的取值类别。
type Kind int

const (
	// KindCategorical 分类字段：string，取值限于 Values 枚举
	KindCategorical Kind = iota
	// KindFlag 0/1 数值开关：按数值列编码，不做 one-hot
	KindFlag
	// KindNumeric 连续数值字段：非负 float64
	KindNumeric
)

// Field 是单个字段的静态声明。
type Field struct {
	Name    string
	Kind    Kind
	Values  []string // 枚举取值，仅 KindCategorical 使用
	Integer bool     // 是否要求整数取值，仅 KindNumeric 使用
}

// Schema 是一组有序字段声明。字段顺序即词表扫描顺序，构建后不可变。
type Schema struct {
	name   string
	fields []Field
	index  map[string]int
}

// New 构建 Schema。fields 的顺序决定编码器扫描字段的顺序。
func New(name string, fields []Field) *Schema {
	s := &Schema{
		name:   name,
		fields: fields,
		index:  make(map[string]int, len(fields)),
	}
	for i, f := range fields {
		s.index[f.Name] = i
	}
	return s
}

// Name 返回 schema 名称（用于日志/错误消息）。
func (s *Schema) Name() string {
	return s.name
}

// Fields 返回声明顺序的字段列表。调用方不得修改返回值。
func (s *Schema) Fields() []Field {
	return s.fields
}

// FieldNames 返回声明顺序的字段名列表。
func (s *Schema) FieldNames() []string {
	names := make([]string, len(s.fields))
	for i, f := range s.fields {
		names[i] = f.Name
	}
	return names
}

// Lookup 按名称查找字段声明。
func (s *Schema) Lookup(name string) (Field, bool) {
	i, ok := s.index[name]
	if !ok {
		return Field{}, false
	}
	return s.fields[i], true
}

var yesNo = []string{"yes", "no"}

// customerFields 按数据集列序声明电信客户画像的 19 个字段。
// 此顺序决定词表的首次出现序，训练与在线评分共用，不可调整。
var customerFields = []Field{
	{Name: "gender", Kind: KindCategorical, Values: []string{"male", "female"}},
	{Name: "seniorcitizen", Kind: KindFlag},
	{Name: "partner", Kind: KindCategorical, Values: yesNo},
	{Name: "dependents", Kind: KindCategorical, Values: yesNo},
	{Name: "tenure", Kind: KindNumeric, Integer: true},
	{Name: "phoneservice", Kind: KindCategorical, Values: yesNo},
	{Name: "multiplelines", Kind: KindCategorical, Values: []string{"no", "yes", "no_phone_service"}},
	{Name: "internetservice", Kind: KindCategorical, Values: []string{"dsl", "fiber_optic", "no"}},
	{Name: "onlinesecurity", Kind: KindCategorical, Values: []string{"no", "yes", "no_internet_service"}},
	{Name: "onlinebackup", Kind: KindCategorical, Values: []string{"no", "yes", "no_internet_service"}},
	{Name: "deviceprotection", Kind: KindCategorical, Values: []string{"no", "yes", "no_internet_service"}},
	{Name: "techsupport", Kind: KindCategorical, Values: []string{"no", "yes", "no_internet_service"}},
	{Name: "streamingtv", Kind: KindCategorical, Values: []string{"no", "yes", "no_internet_service"}},
	{Name: "streamingmovies", Kind: KindCategorical, Values: []string{"no", "yes", "no_internet_service"}},
	{Name: "contract", Kind: KindCategorical, Values: []string{"month-to-month", "one_year", "two_year"}},
	{Name: "paperlessbilling", Kind: KindCategorical, Values: yesNo},
	{Name: "paymentmethod", Kind: KindCategorical, Values: []string{
		"electronic_check", "mailed_check", "bank_transfer_(automatic)", "credit_card_(automatic)",
	}},
	{Name: "monthlycharges", Kind: KindNumeric},
	{Name: "totalcharges", Kind: KindNumeric},
}

var customerSchema = New("customer", customerFields)

// Customer 返回电信客户画像的共享 Schema 实例（不可变，可并发使用）。
func Customer() *Schema {
	return customerSchema
}
