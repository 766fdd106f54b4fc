package growth

// recommendationRule fires when the named measurement carries one of the
// listed status labels in the current assessment.
type recommendationRule struct {
	measurement MeasurementType
	statuses    []string
	text        string
}

var recommendationRules = []recommendationRule{
	{
		measurement: MeasurementHeight,
		statuses:    []string{"Thấp còi độ 1", "Thấp còi độ 2"},
		text:        "Chiều cao của bé thấp hơn chuẩn. Bổ sung canxi, vitamin D và cho bé vận động ngoài trời, tái khám dinh dưỡng trong vòng 1 tháng.",
	},
	{
		measurement: MeasurementWeight,
		statuses:    []string{"Suy dinh dưỡng", "Suy dinh dưỡng nặng"},
		text:        "Cân nặng của bé dưới chuẩn. Tăng cường bữa phụ giàu năng lượng và đạm, theo dõi cân nặng hàng tuần.",
	},
	{
		measurement: MeasurementWeight,
		statuses:    []string{"Nguy cơ thừa cân", "Thừa cân", "Béo phì"},
		text:        "Cân nặng của bé vượt chuẩn. Giảm đồ ngọt và đồ chiên rán, tăng thời gian vận động mỗi ngày.",
	},
	{
		measurement: MeasurementBMI,
		statuses:    []string{"Thừa cân", "Béo phì độ 1", "Béo phì độ 2"},
		text:        "Chỉ số BMI của bé ở mức cao. Điều chỉnh khẩu phần ăn cân đối và tham khảo ý kiến bác sĩ dinh dưỡng.",
	},
	{
		measurement: MeasurementHeadCircumference,
		statuses:    []string{"Vòng đầu nhỏ", "Vòng đầu lớn"},
		text:        "Vòng đầu của bé nằm ngoài khoảng chuẩn. Nên đưa bé đi khám nhi khoa để được đánh giá thêm.",
	},
}

const (
	trendConcerningText = "Tốc độ tăng trưởng gần đây của bé chậm hơn bình thường. Theo dõi sát và đặt lịch tư vấn với bác sĩ nếu xu hướng tiếp tục."
	allNormalText       = "Các chỉ số của bé trong khoảng bình thường. Duy trì chế độ dinh dưỡng và sinh hoạt hiện tại."
)

// Recommendations derives advisory text from the per-measurement statuses
// and the trend signal. The output order follows the rule table, trend text
// last. A fully normal assessment yields a single maintenance message.
func Recommendations(results []MeasurementResult, trend Trend) []string {
	byType := make(map[MeasurementType]string, len(results))
	for _, r := range results {
		byType[r.Measurement] = r.Status
	}

	var out []string
	for _, rule := range recommendationRules {
		status := byType[rule.measurement]
		for _, s := range rule.statuses {
			if status == s {
				out = append(out, rule.text)
				break
			}
		}
	}
	if trend.HasSufficientData && trend.Concerning {
		out = append(out, trendConcerningText)
	}
	if len(out) == 0 {
		out = append(out, allNormalText)
	}
	return out
}
