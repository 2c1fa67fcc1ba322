package pool

import "fmt"

// Static is a Provider backed by in-memory tables.
type Static struct {
	order     []string
	pools     map[string]EntityPool
	templates map[string][]Template
}

// NewStatic builds a provider from explicit tables. Split order follows the
// order slice; splits missing from either map are rejected.
func NewStatic(order []string, pools map[string]EntityPool, templates map[string][]Template) (*Static, error) {
	for _, split := range order {
		if _, ok := pools[split]; !ok {
			return nil, fmt.Errorf("split %q: no entity pool", split)
		}
		if _, ok := templates[split]; !ok {
			return nil, fmt.Errorf("split %q: no templates", split)
		}
	}
	return &Static{order: order, pools: pools, templates: templates}, nil
}

// Pools implements Provider.
func (s *Static) Pools(split string) (EntityPool, []Template, error) {
	p, ok := s.pools[split]
	if !ok {
		return nil, nil, fmt.Errorf("%w: %q", ErrUnknownSplit, split)
	}
	return p, s.templates[split], nil
}

// Splits implements Provider.
func (s *Static) Splits() []string {
	return append([]string(nil), s.order...)
}

// Builtin returns the default train/dev pools. The dev split uses a
// disjoint set of values and templates so evaluation is not biased by
// memorized entities.
func Builtin() *Static {
	return &Static{
		order: []string{SplitTrain, SplitDev},
		pools: map[string]EntityPool{
			SplitTrain: {
				LabelCreditCard: {"4242424242424242", "5555111122223333", "378282246310005", "6011987654321012", "5105105105105100"},
				LabelPhone:      {"9876543210", "9123456789", "9098765432", "9988776655", "9112233445", "8005550199"},
				LabelEmail:      {"ramesh.sharma@gmail.com", "priyanka.verma@outlook.com", "anil.kumar@yahoo.com", "sita.devi@gmail.com", "neha.gupta@hotmail.com"},
				LabelPersonName: {"Ramesh Sharma", "Priyanka Verma", "Anil Kumar", "Sita Devi", "Rajesh Singh", "Neha Gupta"},
				LabelDate:       {"01/02/2024", "15/08/2023", "25/12/2024", "07/04/2025", "11/11/2023"},
				LabelCity:       {"Mumbai", "Chennai", "Bangalore", "Delhi", "Hyderabad", "Pune"},
				LabelLocation:   {"123 main street, building A", "corner of elm and pine", "behind the blue warehouse", "third floor, office 404"},
			},
			SplitDev: {
				LabelCreditCard: {"4000123456789012", "5432109876543210", "340011223344556", "6221000011112222", "4100000000000000"},
				LabelPhone:      {"7700112233", "8899001122", "9001122334", "6543210987", "9012345678"},
				LabelEmail:      {"john.doe@work.co", "jane.smith@edu.in", "customer.service@app.net", "sales_team@corp.org"},
				LabelPersonName: {"Vinay Rao", "Kavita Mehta", "Deepak Kumar", "Tanya Sen", "Arjun Nair", "Sanjana Reddy"},
				LabelDate:       {"02/03/2026", "20/10/2025", "30/01/2026", "04/06/2024", "22/09/2024"},
				LabelCity:       {"Kolkata", "Ahmedabad", "Jaipur", "Lucknow", "Surat", "Kanpur"},
				LabelLocation:   {"456 oak avenue, side entrance", "near the gas station", "inside the mall food court", "first building on the right"},
			},
		},
		templates: map[string][]Template{
			SplitTrain: {
				{"hi this is {PERSON_NAME} my credit card number is {CREDIT_CARD} and email address is {EMAIL}", []Label{LabelPersonName, LabelCreditCard, LabelEmail}},
				{"please call me at {PHONE} i am currently in {CITY} traveling on {DATE}", []Label{LabelPhone, LabelCity, LabelDate}},
				{"my email is {EMAIL} and phone number {PHONE} belongs to my office {LOCATION}", []Label{LabelEmail, LabelPhone, LabelLocation}},
				{"i made a payment using my card {CREDIT_CARD} yesterday on {DATE}", []Label{LabelCreditCard, LabelDate}},
				{"contact {PERSON_NAME} by email {EMAIL} or phone {PHONE} for details", []Label{LabelPersonName, LabelEmail, LabelPhone}},
				{"i'll be in {CITY} on {DATE} reachable at {PHONE} outside the building {LOCATION}", []Label{LabelCity, LabelDate, LabelPhone, LabelLocation}},
				{"my card {CREDIT_CARD} will expire on {DATE}", []Label{LabelCreditCard, LabelDate}},
				{"the meeting with {PERSON_NAME} is on {DATE} in {CITY}", []Label{LabelPersonName, LabelDate, LabelCity}},
			},
			SplitDev: {
				{"can you find {PERSON_NAME} email which is {EMAIL} and the number is {PHONE}", []Label{LabelPersonName, LabelEmail, LabelPhone}},
				{"the delivery address is {LOCATION} in {CITY} scheduled for {DATE}", []Label{LabelLocation, LabelCity, LabelDate}},
				{"i need to block card {CREDIT_CARD} and notify {PERSON_NAME}", []Label{LabelCreditCard, LabelPersonName}},
				{"my contact information is {PHONE} and email is {EMAIL}", []Label{LabelPhone, LabelEmail}},
				{"confirm the charge of twenty dollars on {DATE} with card {CREDIT_CARD}", []Label{LabelDate, LabelCreditCard}},
				{"the conference is located at {LOCATION} in {CITY}", []Label{LabelLocation, LabelCity}},
				{"i am {PERSON_NAME} and i will be travelling on {DATE}", []Label{LabelPersonName, LabelDate}},
			},
		},
	}
}
