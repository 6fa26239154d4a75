package analysis

import (
	"fmt"
	"strings"
)

const scoringBands = `Scoring bands:
- 0.8-1.0: excellent match
- 0.6-0.79: good match
- 0.4-0.59: fair match
- 0.2-0.39: poor match
- 0.0-0.19: very poor match`

const dimensionReplyFormat = `Respond with ONLY a JSON object of the form:
{"score": <number between 0 and 1>, "explanation": "<one or two sentences>"}`

const (
	skillsSystemInstruction = "You are an expert technical recruiter. You evaluate how well a candidate's skills cover a job's requirements, recognising synonyms, related frameworks, and transferable skills. Return ONLY valid JSON."

	experienceSystemInstruction = "You are an expert technical recruiter. You evaluate whether a candidate's experience fits the seniority a job requires, weighing transferable experience and growth potential. Return ONLY valid JSON."

	culturalSystemInstruction = "You are an expert recruiter focused on workplace fit. You evaluate location, remote work preferences, work arrangement, and company context. Return ONLY valid JSON."

	strengthsSystemInstruction = "You are an expert recruiter writing a short hiring brief. Return ONLY valid JSON."
)

func skillsPrompt(candidateSkills, jobSkills []string, jobTitle string) string {
	return fmt.Sprintf(`Evaluate the skills match for the position "%s".

Required job skills (in priority order): %s
Candidate skills: %s

Treat equivalent names as the same skill (for example "React" and "React.js", "Node" and "Node.js") and give partial credit for closely related or transferable skills.

%s

%s`, jobTitle, strings.Join(jobSkills, ", "), strings.Join(candidateSkills, ", "), scoringBands, dimensionReplyFormat)
}

func experiencePrompt(candidateExperience, jobExperienceLevel, jobTitle string) string {
	return fmt.Sprintf(`Evaluate the experience match for the position "%s".

Required experience level: %s
Candidate experience: %s

Consider transferable experience and growth potential, not only an exact level match.

%s

%s`, jobTitle, jobExperienceLevel, candidateExperience, scoringBands, dimensionReplyFormat)
}

// culturalInput is the subset of candidate, job and company attributes the cultural fit prompt uses.
type culturalInput struct {
	CandidateLocation string
	RemotePreference  string
	Experience        string
	Skills            []string
	JobTitle          string
	JobType           string
	WorkType          string
	JobLocation       string
	CompanyName       string
	CompanyIndustry   string
}

func culturalPrompt(in culturalInput) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Evaluate the cultural and workplace fit for the position %q.\n\n", in.JobTitle)

	b.WriteString("Job:\n")
	fmt.Fprintf(&b, "- Job type: %s\n", in.JobType)
	fmt.Fprintf(&b, "- Work type: %s\n", in.WorkType)
	fmt.Fprintf(&b, "- Location: %s\n\n", in.JobLocation)

	if in.CompanyName != "" {
		b.WriteString("Company:\n")
		fmt.Fprintf(&b, "- Name: %s\n", in.CompanyName)
		if in.CompanyIndustry != "" {
			fmt.Fprintf(&b, "- Industry: %s\n", in.CompanyIndustry)
		}
		b.WriteString("\n")
	}

	b.WriteString("Candidate:\n")
	fmt.Fprintf(&b, "- Location: %s\n", in.CandidateLocation)
	fmt.Fprintf(&b, "- Remote work preference: %s\n", in.RemotePreference)
	fmt.Fprintf(&b, "- Experience: %s\n", in.Experience)
	fmt.Fprintf(&b, "- Skills: %s\n\n", strings.Join(in.Skills, ", "))

	b.WriteString("Weigh location compatibility, alignment between the remote preference and the work type, and how the candidate's background suits the company context.\n\n")
	b.WriteString(scoringBands)
	b.WriteString("\n\n")
	b.WriteString(dimensionReplyFormat)
	return b.String()
}

// strengthsInput merges the candidate and job attributes the narrative brief uses.
type strengthsInput struct {
	Skills          []string
	Experience      string
	Location        string
	RequiredSkills  []string
	ExperienceLevel string
	JobType         string
}

func strengthsPrompt(in strengthsInput) string {
	return fmt.Sprintf(`List the candidate's key strengths and weaknesses for this job.

Candidate:
- Skills: %s
- Experience: %s
- Location: %s

Job:
- Required skills: %s
- Experience level: %s
- Job type: %s

Give %d to %d strengths and %d to %d weaknesses, each a short phrase.

Respond with ONLY a JSON object of the form:
{"strengths": ["..."], "weaknesses": ["..."]}`,
		strings.Join(in.Skills, ", "), in.Experience, in.Location,
		strings.Join(in.RequiredSkills, ", "), in.ExperienceLevel, in.JobType,
		MinStrengths, MaxStrengths, MinWeaknesses, MaxWeaknesses)
}
