package localgen

import (
	"text/template"

	"github.com/SAZZAD-404/vidpilot/pkg/content"
)

// templateData is the interpolation context for every template.
type templateData struct {
	Topic    string
	Title    string
	Platform string
	Minutes  int
}

func parse(name string, variants ...string) []*template.Template {
	out := make([]*template.Template, len(variants))
	for i, v := range variants {
		out[i] = template.Must(template.New(name).Parse(v))
	}
	return out
}

var captionTemplates = map[content.Tone][]*template.Template{
	content.ToneCasual: parse("caption-casual",
		"Just spent the day thinking about {{.Topic}} and honestly, no regrets.",
		"Not gonna lie, {{.Topic}} has been living rent-free in my head lately.",
		"Quick reminder that {{.Topic}} makes everything a little better.",
	),
	content.ToneProfessional: parse("caption-professional",
		"Three lessons we learned from working on {{.Topic}}, and why they matter for your team.",
		"{{.Title}}: what the data tells us and where it is heading next.",
		"Sharing a few practical insights on {{.Topic}} from the past quarter.",
	),
	content.ToneFunny: parse("caption-funny",
		"Me: I will be productive today. Also me: researching {{.Topic}} for five hours.",
		"{{.Title}} is my cardio. Do not ask follow-up questions.",
		"My therapist says I talk about {{.Topic}} too much. Anyway, about {{.Topic}}...",
	),
	content.ToneInspirational: parse("caption-inspirational",
		"Every big journey starts small. Today, mine starts with {{.Topic}}.",
		"Believe in the process. {{.Title}} taught me that progress beats perfection.",
		"The best time to start with {{.Topic}} was yesterday. The next best time is now.",
	),
	content.ToneEducational: parse("caption-educational",
		"Did you know? {{.Title}} is simpler than it looks. Here is the one idea that makes it click.",
		"{{.Title}} in one sentence: learn the basics, practice daily, and measure what changes.",
		"Save this for later: a beginner-friendly breakdown of {{.Topic}}.",
	),
	content.ToneDramatic: parse("caption-dramatic",
		"Nobody was ready for {{.Topic}}. Not even me.",
		"It started like any other day. Then came {{.Topic}}.",
		"Some moments change everything. {{.Title}} was one of them.",
	),
}

var postTemplates = map[content.Tone][]*template.Template{
	content.ToneCasual: parse("post-casual",
		"So here is the thing about {{.Topic}}.\n\nI did not expect to care this much, but after trying it for a few weeks it honestly changed how I spend my mornings.\n\nIf you have been on the fence, start small. Give it ten minutes a day and see how it feels.\n\nWhat is your take on {{.Topic}}?",
		"Can we talk about {{.Topic}} for a second?\n\nEveryone keeps recommending it and I finally gave in. The first attempt was a mess, the second was better, and by the third I was hooked.\n\nMoral of the story: do not judge anything by your first try.",
	),
	content.ToneProfessional: parse("post-professional",
		"{{.Title}}: key takeaways.\n\nOver the last months we looked closely at {{.Topic}} and how it affects day-to-day work. Three points stood out.\n\nFirst, small consistent changes outperform large one-off initiatives. Second, clear ownership matters more than tooling. Third, feedback loops need to be short to be useful.\n\nHow is your organisation approaching {{.Topic}}?",
		"Why {{.Topic}} deserves a place on your roadmap.\n\nTeams that invest early report better outcomes and fewer surprises later. The cost of waiting is rarely visible until it is too late.\n\nStart with a pilot, measure honestly, and scale what works.",
	),
	content.ToneFunny: parse("post-funny",
		"A short history of me and {{.Topic}}.\n\nDay one: this looks easy.\nDay two: this is not easy.\nDay three: I have become the person who explains {{.Topic}} at parties.\n\nSend help. Or snacks. Preferably snacks.",
		"Things nobody tells you about {{.Topic}}.\n\nYou will start with one. You will end up with twelve. Your friends will stop inviting you to things because you only talk about {{.Topic}}.\n\nWorth it.",
	),
	content.ToneInspirational: parse("post-inspirational",
		"A year ago, {{.Topic}} felt impossible.\n\nI had every excuse ready. Not enough time, not enough skill, not enough confidence. Then I decided to show up anyway, one small step at a time.\n\nIf you are waiting for the perfect moment, this is your sign. Start where you are.",
		"{{.Title}} reminded me of something important.\n\nGrowth is quiet. It happens in the days nobody sees, in the practice that feels pointless, in the choice to keep going.\n\nKeep going.",
	),
	content.ToneEducational: parse("post-educational",
		"{{.Title}} explained simply.\n\nAt its core, {{.Topic}} comes down to a few fundamentals. Understand why it works, learn the common mistakes, and practise with small examples before scaling up.\n\nA good first step is to write down what you already know and what confuses you. That list becomes your study plan.",
		"Five minutes to understand {{.Topic}}.\n\nStart with the basic idea, then look at a real example, then try it yourself. Most people skip the last step, and that is where the learning actually happens.",
	),
	content.ToneDramatic: parse("post-dramatic",
		"I never thought {{.Topic}} would change my life.\n\nIt started quietly. A small decision, almost nothing. Then everything shifted, and there was no going back.\n\nThis is that story.",
		"They said {{.Topic}} was not worth the risk.\n\nThey were wrong.\n\nWhat happened next surprised everyone, including me.",
	),
}

// storyPlot is the skeleton of a generated story: an opening, a pool of
// middle paragraphs cycled until the word budget is met, and an ending.
type storyPlot struct {
	Title   *template.Template
	Opening *template.Template
	Middle  []*template.Template
	Ending  *template.Template
}

func plot(name, title, opening string, middle []string, ending string) storyPlot {
	return storyPlot{
		Title:   template.Must(template.New(name + "-title").Parse(title)),
		Opening: template.Must(template.New(name + "-open").Parse(opening)),
		Middle:  parse(name+"-middle", middle...),
		Ending:  template.Must(template.New(name + "-end").Parse(ending)),
	}
}

var storyPlots = map[content.Genre]storyPlot{
	content.GenreAdventure: plot("adventure",
		"The Road to {{.Title}}",
		"Nobody in the village had ever gone looking for {{.Topic}}. Mara was about to be the first.",
		[]string{
			"She packed light: a map, a water flask and a compass that had belonged to her grandfather. The trail climbed through pine forest and the air grew thin and cold.",
			"On the third day the path vanished under a rockslide. She could turn back, or she could climb. She climbed, hand over hand, until the valley opened below her like a green sea.",
			"A stranger at the river crossing warned her that others had searched for {{.Topic}} and never returned. Mara thanked him and waded into the current anyway.",
			"That night she camped beneath a sky so full of stars it looked like spilled sugar. For the first time, she wondered what she would do if she actually found it.",
		},
		"When she finally reached {{.Topic}}, it was nothing like the stories. It was better. And she knew she would spend the rest of her life telling people how to get there.",
	),
	content.GenreMystery: plot("mystery",
		"The Secret of {{.Title}}",
		"The letter arrived on a Tuesday, unsigned, with only three words inside: find {{.Topic}}.",
		[]string{
			"Detective Hale read it twice, then held it to the light. A faint watermark showed the crest of a hotel that had closed twenty years ago.",
			"The hotel's caretaker claimed he knew nothing, but his hands trembled when Hale mentioned {{.Topic}}. Someone had been here recently. The dust on the stairs said so.",
			"In the basement archive, one ledger page had been torn out. The page before it listed a single guest who never checked out.",
			"Hale stayed up all night connecting the names. By dawn the pattern was clear, and it pointed straight back to the person who had sent the letter.",
		},
		"The truth about {{.Topic}} had been hidden in plain sight all along. Hale closed the file, but kept the letter. Some mysteries deserve to be remembered.",
	),
	content.GenreMotivational: plot("motivational",
		"How {{.Title}} Changed Everything",
		"Two years ago, Sam failed at {{.Topic}} in front of everyone. Today, that failure is the best thing that ever happened to him.",
		[]string{
			"After that day he made one rule: show up every morning, even for ten minutes. Some days ten minutes was all he could give. He gave it anyway.",
			"Progress was invisible at first. Friends asked why he bothered. He did not have a good answer, only a quiet feeling that the work was adding up.",
			"Six months in, something shifted. The things that used to scare him became routine. The routine became skill.",
			"He started helping others who were where he had been. Teaching them showed him how far he had come.",
		},
		"If you are at the beginning with {{.Topic}}, remember Sam. The only real failure is stopping. Start today, and let future you say thank you.",
	),
	content.GenreHorror: plot("horror",
		"The Night of {{.Title}}",
		"The house at the end of Alder Lane had one rule: never speak of {{.Topic}} after dark.",
		[]string{
			"Jess laughed at the rule the first night. On the second night, the lights flickered every time she said it.",
			"On the third night she woke to the sound of footsteps in the attic, slow and deliberate, pacing the length of the house.",
			"She found old photographs in a drawer. In every one, the same shadow stood behind the family, a little closer each year.",
			"The phone rang at three in the morning. The voice on the line whispered a single phrase, and it was about {{.Topic}}.",
		},
		"Jess left Alder Lane at sunrise and never went back. But sometimes, late at night, she still hears footsteps above her ceiling.",
	),
	content.GenreComedy: plot("comedy",
		"The Great {{.Title}} Disaster",
		"Kevin had one job: organise the office party. He decided the theme would be {{.Topic}}. That was his first mistake.",
		[]string{
			"The decorations arrived in the wrong colour, the wrong size and, somehow, the wrong language. Kevin called it a creative choice.",
			"The caterer misunderstood the theme completely and delivered four hundred cupcakes shaped like something nobody could identify.",
			"Halfway through the party the fire alarm went off. It turned out to be the cupcakes.",
			"The boss took the microphone to say a few words. She said several, and most of them were about Kevin.",
		},
		"Somehow, it became the best party the office ever had. Next year the theme is {{.Topic}} again, and Kevin is banned from the planning committee.",
	),
	content.GenreEducational: plot("educational",
		"{{.Title}} Explained",
		"What exactly is {{.Topic}}, and why does everyone keep talking about it? Let us break it down.",
		[]string{
			"At its core, {{.Topic}} is about a few simple ideas that build on each other. Once the first one clicks, the rest follow naturally.",
			"A common misconception is that you need special talent to understand it. In reality, most experts started with the same basic questions you have now.",
			"Here is a practical example. Imagine explaining {{.Topic}} to a friend using only everyday objects. If you can do that, you truly understand it.",
			"The next step is practice. Short, regular sessions beat long, rare ones, because memory strengthens with repetition.",
		},
		"Now you know the essentials of {{.Topic}}. Try explaining it to someone today, and watch how much more clearly you understand it yourself.",
	),
	content.GenreDocumentary: plot("documentary",
		"Inside {{.Title}}",
		"For decades, {{.Topic}} has shaped lives in ways most people never notice. This is its story.",
		[]string{
			"It began modestly, with a handful of people who saw potential where others saw nothing. Their early work was slow, underfunded and often ignored.",
			"Over time, word spread. Communities formed around {{.Topic}}, sharing knowledge and pushing each other forward.",
			"Not every chapter was a success. Setbacks, disputes and changing times tested everyone involved.",
			"Today, the influence of {{.Topic}} can be seen far beyond where it started, in places its pioneers could hardly have imagined.",
		},
		"The story of {{.Topic}} is still being written. What happens next depends on the people who choose to carry it forward.",
	),
}

var ctas = map[content.Tone][]string{
	content.ToneCasual:        {"Drop a comment below!", "Tag a friend who needs this.", "Follow for more."},
	content.ToneProfessional:  {"Share your perspective in the comments.", "Follow for more insights.", "Connect with us to learn more."},
	content.ToneFunny:         {"Tag someone who does this.", "Like if you relate.", "Share this with your most chaotic friend."},
	content.ToneInspirational: {"Save this for the days you need it.", "Share this with someone who needs a push.", "Follow for daily motivation."},
	content.ToneEducational:   {"Save this post for later.", "Follow to learn something new every day.", "Share this with someone studying it."},
	content.ToneDramatic:      {"Follow for part two.", "Comment what you would have done.", "Share if this gave you chills."},
}

var hooks = map[content.Tone][]string{
	content.ToneCasual:        {"Okay, real talk.", "You need to hear this."},
	content.ToneProfessional:  {"Here is what most teams miss.", "One insight worth sharing."},
	content.ToneFunny:         {"Stop scrolling. This is important. Kind of.", "Nobody asked, but here goes."},
	content.ToneInspirational: {"This is your sign.", "Read this if you are about to give up."},
	content.ToneEducational:   {"Most people get this wrong.", "Here is something you probably did not know."},
	content.ToneDramatic:      {"Wait until the end.", "I still cannot believe this happened."},
}
