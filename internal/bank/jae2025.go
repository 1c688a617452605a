package bank

import "github.com/pavelanni/examcoach/internal/model"

// JAE2025ID identifies the built-in bank.
const JAE2025ID = "jae-english-2025"

func mc(id string, number int, prompt string, answer string, marks float64, options ...string) model.Question {
	q := model.Question{
		ID:     id,
		Number: number,
		Kind:   model.KindMultipleChoice,
		Prompt: prompt,
		Answer: answer,
		Marks:  marks,
	}
	for i, text := range options {
		q.Options = append(q.Options, model.Option{Label: string(rune('A' + i)), Text: text})
	}
	return q
}

func fill(id string, number int, prompt, answer string, marks float64) model.Question {
	return model.Question{ID: id, Number: number, Kind: model.KindFillIn, Prompt: prompt, Answer: answer, Marks: marks}
}

// JAE2025 returns the JAE English 2025 paper. Each call builds a new value.
func JAE2025() model.Bank {
	return model.Bank{
		ID:    JAE2025ID,
		Title: "JAE English 2025",
		Sections: []model.Section{
			{
				ID:       "section-1",
				Title:    "Section 1 – Language Use",
				Subtitle: "40 marks",
				Parts: []model.Part{
					{
						ID:    "s1-part-a-1",
						Title: "Part A – Vocabulary and grammar (Everyday conversation)",
						Passage: "Lisa: Hi, Kenneth.\nKenneth: Hi, Lisa. It’s been ages since I (1) ________ saw you.\n" +
							"Lisa: It must be a year.\nKenneth: Yeah. How are you?\n" +
							"Lisa: I’m very (2) ________, thanks. Really busy. I am in the school basketball team now.\n" +
							"Kenneth: Yeah, I heard you guys are doing great.\nLisa: Thanks.\n" +
							"Kenneth: Are you still (3) ________ in Hong Kong?\n" +
							"Lisa: Yes, I am, but I’m in a new school now. It’s in a good location so I’m really (4) ________ it.\n" +
							"Kenneth: Great.",
						Questions: []model.Question{
							mc("q1", 1, "", "C", 1, "previous", "before", "last", "after"),
							mc("q2", 2, "", "D", 1, "fine", "true", "positively", "well"),
							mc("q3", 3, "", "B", 1, "live", "studying", "be", "continue"),
							mc("q4", 4, "", "A", 1, "enjoying", "delighting", "pleased", "joy"),
						},
					},
					{
						ID:    "s1-part-a-2",
						Title: "Part A – Vocabulary and grammar (A notice)",
						Passage: "TOUR GUIDE NEEDED: WORK WITH ENGLISH-SPEAKING TOURISTS\n" +
							"Have you (5) ________ looking for a chance to improve your English and earn some money at the same time? Well, here is how!\n" +
							"Our company provides package tours for British and American tourists all (6) ________ the world, and we are looking for local people who are interested in acting as tour guides. " +
							"You would be (7) ________ looking after your group and telling them stories about Macao.\n" +
							"Send us (8) ________ email at Tours@Britamtours.com if you are interested.",
						Questions: []model.Question{
							mc("q5", 5, "", "D", 1, "are", "being", "were", "been"),
							mc("q6", 6, "", "A", 1, "over", "in", "about", "of"),
							mc("q7", 7, "", "B", 1, "in charge", "responsible for", "accountable", "take care"),
							mc("q8", 8, "", "A", 1, "an", "the", "some", "a"),
						},
					},
					{
						ID:    "s1-part-b",
						Title: "Part B – Spotting errors in context",
						Passage: "Living in the city without a car\n" +
							"My name is Bob and I don’t have a car. Living without a car in a developed city is (1) possible but it is sometimes inconvenient. " +
							"Without a car or motorbike, it can be a challenge to live in a large, spread-out city, but it is (2) very easier to live without a vehicle in a small city like Macao. " +
							"Public transportation is obviously really important for people without a car because we need (3) them to get around. " +
							"Travelling to work or school every day on a bus or a train can take a lot of time, especially (4) at the morning and evening rush hours. " +
							"However, (5) take the bus is a lot less stressful than driving a car. " +
							"Some active people who don’t have cars choose to walk or ride a bike to work in the mornings to (6) make some exercise. " +
							"One of the biggest (7) hurts of living without a car is shopping. " +
							"A lot of things I buy have to (8) be delivered because they are too heavy for me to transport them myself. " +
							"I also can’t easily go to stores that are far away (9) that where I live. " +
							"At the moment, I am happy living without a car but I might (10) buy one next year.",
						Questions: []model.Question{
							mc("qb1", 1, "Is '(1) possible' correct?", "D", 1.5, "impossible", "possibly", "possibility", "NO CHANGE"),
							mc("qb2", 2, "Is '(2) very' correct?", "B", 1.5, "mostly", "much", "a lot of", "NO CHANGE"),
							mc("qb3", 3, "Is '(3) them' correct?", "A", 1.5, "it", "they", "him", "NO CHANGE"),
							mc("qb4", 4, "Is '(4) at' correct?", "B", 1.5, "on", "during", "with", "NO CHANGE"),
							mc("qb5", 5, "Is '(5) take' correct?", "C", 1.5, "taked", "took", "taking", "NO CHANGE"),
						},
					},
					{
						ID:    "s1-part-c",
						Title: "Part C – Joining sentences",
						Passage: "The Internet Men: (1) Many people do not have Internet access in Bangladesh. " +
							"In Bangladesh, Internet Men ride bicycles door-to-door to connect villages by Internet. " +
							"(2) They carry laptops. Villagers can use the laptops for either personal or business use. " +
							"(3) In many places, there are no doctors for miles. Deaths from easily curable diseases are common. " +
							"(4) The Internet Men are also responsible for taking blood pressure and blood sugar levels. " +
							"Taking blood pressure and blood sugar level measurements can save lives. " +
							"(5) The country’s central bank has created a special fund to support the Internet Men. " +
							"The country’s central bank will hire thousands more Internet Men in the next few years.",
						Questions: []model.Question{
							mc("qc1", 1, "Choose the best joined sentence for pair (1):", "B", 2,
								"Many people do not have internet access in Bangladesh since Internet Men ride bicycles door-to-door...",
								"Since many people do not have Internet access in Bangladesh, Internet Men ride bicycles door-to-door to connect villages by Internet there.",
								"Since many people do not have Internet access in Bangladesh, so in Bangladesh, Internet Men ride bicycles...",
								"Since in Bangladesh Internet Men ride bicycles door-to-door to connect villages by Internet, so many people...",
							),
							mc("qc2", 2, "Choose the best joined sentence for pair (2):", "D", 2,
								"They carry laptops which villagers can use the laptops for either personal or business.",
								"Villagers can use the laptops for either personal or business use which they carry.",
								"Villagers can use the laptops which for either personal or business use, they carry.",
								"They carry laptops, which villagers can use for either personal or business use.",
							),
						},
					},
				},
			},
			{
				ID:       "section-2",
				Title:    "Section 2 – Reading Comprehension",
				Subtitle: "30 marks",
				Parts: []model.Part{
					{
						ID:    "s2-part-b",
						Title: "Part B – Short passage: Energy Drinks Can Be Dangerous",
						Passage: "(1) School can make students feel tired... (2) Even though energy drinks may seem harmless, they can actually be dangerous. " +
							"One can contains up to 29g of sugar (12%). Sugar releases dopamine. " +
							"Caffeine keeps dopamine levels high by slowing it down leaving the brain... " +
							"(3) When effects disappear, person feels tired. Energy drinks are not food and don't provide nutrition, just sugar... " +
							"(5) Research says drinking a lot of caffeine leads to problems like high blood pressure or fast heartbeat...",
						Questions: []model.Question{
							mc("r1", 1, "According to the passage, why do young people buy energy drinks?", "A", 1.5,
								"They feel tired from their busy schedule.",
								"They like the sweet taste.",
								"They follow the example of their friends.",
								"They are tired of school.",
							),
							mc("r2", 2, "What is the meaning of 'combination' as used in paragraph 2?", "C", 1.5,
								"The password to open a lock",
								"Expensive chemicals",
								"A mixture of two or more things",
								"Joining with the body",
							),
						},
					},
					{
						ID:    "s2-part-c-summary",
						Title: "Part C – Summary",
						Passage: "World Economic Forum – The Future of Jobs Report (2023)\n" +
							"* New technologies will (0) create some new types of jobs.\n" +
							"* Some job types (4) ______________ won’t be replaced by AI:\n" +
							"Jobs that won’t be replaced by AI | Reason(s)\n" +
							"- social workers | requires human (5) ______________\n" +
							"- stage performers | able to engage with an audience\n" +
							"- politicians and business leaders | AI doesn’t have (6) ______________ abilities\n" +
							"- (7) ______________ trades people | they work with their hands",
						Questions: []model.Question{
							fill("sum4", 4, "Fill in blank (4) (One word from passage):", "probably", 1),
							fill("sum5", 5, "Fill in blank (5) (One word from passage):", "understanding", 1),
							fill("sum6", 6, "Fill in blank (6) (One word from passage):", "leadership", 1),
							fill("sum7", 7, "Fill in blank (7) (One word from passage):", "skilled", 1),
						},
					},
				},
			},
			{
				ID:       "section-3",
				Title:    "Section 3 – Writing",
				Subtitle: "30 marks",
				Parts: []model.Part{
					{
						ID:          "s3-writing",
						Title:       "Writing Task",
						Description: "Choose ONE topic below and write an essay of at least 200 words.",
						Questions: []model.Question{
							{
								ID:     "w1",
								Number: 1,
								Kind:   model.KindEssay,
								Prompt: "Write your essay here (min 200 words):",
								Marks:  30,
								Topics: []string{
									"Describe your favourite online content creator and why you like them.",
									"How can young people reduce their stress in everyday life?",
									"What are the advantages and disadvantages of exams to measure students’ abilities?",
								},
							},
						},
					},
				},
			},
		},
	}
}
