package extract

const jobPrompt = `Extract the following information from this job description in JSON format:

- title (string): The job title
- company (string): Company name
- description (string): Full job description
- country (string): Country of job location
- date (string): Posting date in YYYY-MM-DD format if available, otherwise use today's date
- sponsorship (boolean): Whether the job offers visa sponsorship
- minYearsExperience (number): Minimum years of experience required
- minEducation (string): Minimum education level (e.g. "Bachelor's", "Master's", "PhD", "None")
- positionLevel (string): Job level (e.g. "Entry-level", "Mid-level", "Senior", "Lead", "Executive")
- keywords (array of strings): Important skills or keywords from the description
- recruiterId (string): Use "recruiter-1" as placeholder
- recruiterName (string): Use "Recruitment Team" as placeholder

Job Description:
%s

Respond with ONLY the JSON object with no additional text.`

const resumePrompt = `Extract the following information from this resume in JSON format:

- name (string): Full name of the applicant
- workAuthorization (string): Work authorization status if mentioned
- yearsOfExperience (number): Total years of professional experience
- countryOfOrigin (string): Country of origin if mentioned
- dateOfBirth (string, optional): DOB in YYYY-MM-DD format if mentioned
- address (string, optional): Address if mentioned
- personalStatement (string): Summary or objective statement
- resumeFileType (string): Use "PDF"
- workExperience (array): List of work experiences, each with:
    - company (string): Company name
    - title (string): Job title
    - startDate (string): Start date (YYYY-MM format)
    - endDate (string, optional): End date (YYYY-MM format) or "Present"
    - description (string): Job description
    - skills (array of strings): Skills used in this role
- education (array): List of education, each with:
    - institution (string): School/university name
    - degree (string): Degree type
    - field (string): Field of study
    - startDate (string): Start date (YYYY-MM format)
    - endDate (string, optional): End date (YYYY-MM format)
- lastPosition (string): Most recent job title
- lastPositionLevel (string): Level of most recent position (e.g., "Entry", "Mid", "Senior")
- urls (array of strings, optional): Professional URLs (LinkedIn, GitHub, etc.)
- projects (array, optional): List of projects, each with:
    - name (string): Project name
    - description (string): Project description
    - url (string, optional): Project URL
    - technologies (array of strings): Technologies used

Resume text:
%s

Respond with ONLY the JSON object with no additional text.`
