package suggest

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/wisal-ai/wisal/pkg/types"
)

// Rule binds one topic tag to the keywords that detect it and the ranked
// suggestion templates it triggers. The declaration order of rules is
// significant: topic detection reports tags in table order and equal-priority
// suggestions keep their table order.
type Rule struct {
	Topic       string             `yaml:"topic"`       // Topic tag, e.g. "civil_id"
	Keywords    []string           `yaml:"keywords"`    // Case-insensitive substring triggers, both languages mixed
	Suggestions []types.Suggestion `yaml:"suggestions"` // Candidate suggestions for this topic
}

// DefaultRules returns the built-in bilingual rule table covering the civil
// services the assistant knows about.
func DefaultRules() []Rule {
	return []Rule{
		{
			Topic: "digital_signature",
			Keywords: []string{
				"signature", "sign", "digital", "توقيع", "رقمي", "certificate", "شهادة",
				"encrypt", "تشفير", "pin", "رقم سري",
			},
			Suggestions: []types.Suggestion{
				{
					TextAR:         "هل تبي أساعدك تحجز موعد للتوقيع الرقمي؟ 📅",
					TextEN:         "Would you like me to help you book an appointment for digital signature registration? 📅",
					TriggerReason:  "User discussed digital signatures",
					Priority:       4,
					ServiceRelated: "digital_signature",
				},
				{
					TextAR:         "تبي أشرح لك خطوات التسجيل بالتفصيل؟",
					TextEN:         "Would you like me to walk you through the registration steps?",
					TriggerReason:  "User asked about digital signatures",
					Priority:       3,
					ServiceRelated: "digital_signature",
				},
			},
		},
		{
			Topic: "civil_id",
			Keywords: []string{
				"civil id", "بطاقة", "مدنية", "هوية", "card", "id card", "بطاقة مدنية",
				"civil number", "رقم مدني",
			},
			Suggestions: []types.Suggestion{
				{
					TextAR:         "تبي أشيك لك على حالة طلبك؟ 🔍",
					TextEN:         "Would you like me to check your application status? 🔍",
					TriggerReason:  "User discussed Civil ID",
					Priority:       5,
					ServiceRelated: "civil_id_status",
				},
				{
					TextAR:         "أقدر أساعدك تعرف المستندات المطلوبة",
					TextEN:         "I can help you find out the required documents",
					TriggerReason:  "User mentioned Civil ID",
					Priority:       3,
					ServiceRelated: "civil_id_requirements",
				},
			},
		},
		{
			Topic: "appointment",
			Keywords: []string{
				"appointment", "موعد", "book", "حجز", "schedule", "جدول", "visit", "زيارة",
				"slot", "available",
			},
			Suggestions: []types.Suggestion{
				{
					TextAR:         "تبي أعرض لك المواعيد المتاحة؟ 📆",
					TextEN:         "Would you like me to show you available appointment slots? 📆",
					TriggerReason:  "User mentioned appointments",
					Priority:       5,
					ServiceRelated: "appointment_booking",
				},
			},
		},
		{
			Topic: "renewal",
			Keywords: []string{
				"renew", "تجديد", "expire", "انتهاء", "validity", "صلاحية", "extend", "تمديد",
			},
			Suggestions: []types.Suggestion{
				{
					TextAR:         "أقدر أشيك لك إذا بطاقتك قربت تنتهي",
					TextEN:         "I can check if your ID is approaching expiration",
					TriggerReason:  "User discussed renewal",
					Priority:       4,
					ServiceRelated: "civil_id_renewal",
				},
			},
		},
		{
			Topic: "general_paci",
			Keywords: []string{
				"paci", "هيئة", "service", "خدمة", "help", "مساعدة", "information", "معلومات",
			},
			Suggestions: []types.Suggestion{
				{
					TextAR:         "تبي أعرض لك الخدمات الإلكترونية المتاحة؟ 💻",
					TextEN:         "Would you like me to show you the available e-services? 💻",
					TriggerReason:  "General PACI inquiry",
					Priority:       2,
					ServiceRelated: "e_services",
				},
			},
		},
	}
}

// rulesFile is the YAML document shape for rule override files.
type rulesFile struct {
	Rules []Rule `yaml:"rules"`
}

// LoadRules reads a rule table from a YAML file. The file carries the same
// shape as the built-in table and replaces it entirely, letting deployments
// customize topics and suggestion texts without rebuilding.
func LoadRules(path string) ([]Rule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("suggest: failed to read rules file: %w", err)
	}

	var doc rulesFile
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("suggest: failed to parse rules file: %w", err)
	}
	if len(doc.Rules) == 0 {
		return nil, fmt.Errorf("suggest: rules file %s contains no rules", path)
	}

	if err := validateRules(doc.Rules); err != nil {
		return nil, err
	}
	return doc.Rules, nil
}

// validateRules checks the structural invariants of a rule table: non-empty
// topic tags, no duplicate topics, and priorities within [1,5].
func validateRules(rules []Rule) error {
	seen := make(map[string]bool, len(rules))
	for i, rule := range rules {
		if rule.Topic == "" {
			return fmt.Errorf("suggest: rule %d has an empty topic", i)
		}
		if seen[rule.Topic] {
			return fmt.Errorf("suggest: duplicate topic %q", rule.Topic)
		}
		seen[rule.Topic] = true

		for j, s := range rule.Suggestions {
			if s.Priority < 1 || s.Priority > 5 {
				return fmt.Errorf("suggest: topic %q suggestion %d has priority %d, want 1-5", rule.Topic, j, s.Priority)
			}
		}
	}
	return nil
}
